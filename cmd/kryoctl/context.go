package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/infrastructure/backend"
	"github.com/JoseeGarciaa/kryotecsense-sub001/pkg/config"
	"github.com/JoseeGarciaa/kryotecsense-sub001/pkg/logger"
)

type globalFlags struct {
	url   string
	token string
	json  bool
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		if u := strings.TrimSpace(c.flags.url); u != "" {
			cfg.Backend.URL = u
		}
		if t := strings.TrimSpace(c.flags.token); t != "" {
			cfg.Backend.Token = t
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) client() (*backend.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Backend.Token == "" {
		return nil, fmt.Errorf("falta el token: use --token o BACKEND_TOKEN (ver kryoctl token)")
	}
	return backend.NewClient(cfg.Backend.URL, cfg.Backend.Token, cfg.Backend.Timeout), nil
}

// logger a stderr para no ensuciar tablas ni JSON.
func (c *commandContext) logger() zerolog.Logger {
	cfg, _ := c.ensureConfig()
	lc := logger.Config{Env: "development", Level: "warn", Service: "kryoctl", Output: stderr}
	if cfg != nil {
		lc.Level = cfg.App.LogLevel
	}
	return logger.New(lc).Zerolog()
}
