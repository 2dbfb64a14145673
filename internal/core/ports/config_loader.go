package ports

import "go.trai.ch/replay/internal/core/domain"

// ConfigLoader defines the interface for loading the harness configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load walks up from cwd to find replay.yaml and returns the resolved
	// settings with all paths absolute.
	Load(cwd string) (*domain.Settings, error)

	// LoadSuite parses one scenario suite file.
	LoadSuite(path string) (domain.Suite, error)
}
