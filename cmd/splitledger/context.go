package main

import (
	"strings"
	"sync"

	"splitledger/internal/config"
	"splitledger/internal/logging"
	"splitledger/internal/repair"
	"splitledger/internal/storage"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// newRunner opens the database and assembles a job runner. The returned
// cleanup closes the database.
func (c *commandContext) newRunner(component string) (*repair.Runner, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	runner := repair.NewRunner(cfg, logging.WithComponent(logger, component), db)
	return runner, func() { _ = db.Close() }, nil
}
