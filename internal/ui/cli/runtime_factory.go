package cli

import (
	"fmt"
	"log/slog"
	coreapp "packsense/internal/core/app"
	"packsense/internal/core/config"
)

type sessionFactory interface {
	New(cfg *config.Config, cwd string) (*coreapp.Session, error)
}

type coreSessionFactory struct{}

func (coreSessionFactory) New(cfg *config.Config, cwd string) (*coreapp.Session, error) {
	return coreapp.New(cfg, coreapp.WithWorkingDir(cwd), coreapp.WithLogger(slog.Default()))
}

func initializeSession(cfg *config.Config, cwd string, factory sessionFactory) (*coreapp.Session, error) {
	if factory == nil {
		return nil, fmt.Errorf("session factory is required")
	}
	return factory.New(cfg, cwd)
}
