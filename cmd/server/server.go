package main

import (
	"fmt"
	"time"

	"github.com/JaimeStill/promptvault/internal/config"
	"github.com/JaimeStill/promptvault/internal/infrastructure"
	"github.com/JaimeStill/promptvault/migrations"
)

type Server struct {
	infra       *infrastructure.Infrastructure
	modules     *Modules
	http        *httpServer
	autoMigrate bool
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra, cfg)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
		"lock_backend", cfg.Lock.Backend,
		"archive", cfg.Prompts.ArchiveDeleted(),
	)

	return &Server{
		infra:       infra,
		modules:     modules,
		http:        newHTTPServer(&cfg.Server, router, infra.Logger),
		autoMigrate: cfg.Database.AutoMigrate,
	}, nil
}

func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if s.autoMigrate {
		if err := s.infra.Database.Migrate(migrations.FS); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
	}

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		if err := s.infra.Lifecycle.WaitForStartup(); err != nil {
			s.infra.Logger.Error("subsystem startup failed", "error", err)
			return
		}
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
