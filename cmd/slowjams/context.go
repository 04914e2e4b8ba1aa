package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"slowjams/internal/config"
	"slowjams/internal/queue"
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

func (c *commandContext) lockPath() (string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg.Paths.StateDir, "slowjams.lock"), nil
}

// withLock runs fn while holding the exclusive queue lock. The lock keeps
// a running engine and offline queue edits from clobbering each other's
// journal writes.
func (c *commandContext) withLock(fn func() error) error {
	path, err := c.lockPath()
	if err != nil {
		return err
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire queue lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another slowjams process holds the queue lock at %s; stop it first", path)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

// withJournal opens the task journal under the queue lock, loads it into a
// store, and hands both to fn. Commands that mutate the store are expected
// to save it back themselves.
func (c *commandContext) withJournal(cmd *cobra.Command, fn func(journal *queue.Journal, store *queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	return c.withLock(func() error {
		journal, err := queue.OpenJournal(cfg.Paths.StateDir)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer journal.Close()

		tasks, err := journal.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("load journal: %w", err)
		}
		store := queue.NewStore()
		for _, task := range tasks {
			store.Put(task)
		}
		return fn(journal, store)
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
