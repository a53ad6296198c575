// Package configstore owns the account template configuration. A template set
// is loaded, validated and then published as an immutable snapshot; readers
// never observe a partially loaded set.
package configstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/core/domain"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// watchDebounce is how long a file must stay quiet before it is reloaded.
const watchDebounce = 300 * time.Millisecond

type templateFile struct {
	Version   string                            `mapstructure:"version"`
	Templates map[string]domain.AccountTemplate `mapstructure:"templates"`
}

// TemplateStore serves the current TemplateSet.
type TemplateStore struct {
	path     string
	current  atomic.Pointer[domain.TemplateSet]
	reloadMu sync.Mutex
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewTemplateStore loads the set at path, or the built-in set when path is
// empty. It fails if the initial set is invalid.
func NewTemplateStore(path string, logger *slog.Logger) (*TemplateStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &TemplateStore{
		path:     path,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the active snapshot. Callers must not modify it.
func (s *TemplateStore) Current() *domain.TemplateSet {
	return s.current.Load()
}

// Reload reads and validates the configured source and publishes it. On any
// error the previously published set stays active.
func (s *TemplateStore) Reload() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	var (
		set domain.TemplateSet
		err error
	)
	if s.path == "" {
		set = domain.DefaultTemplateSet()
	} else {
		set, err = s.readFile()
		if err != nil {
			return err
		}
	}
	if err := s.check(set); err != nil {
		return err
	}
	set.LoadedAt = s.now().UTC()
	s.current.Store(&set)
	s.logger.Info("Account templates published",
		slog.String("version", set.Version),
		slog.Int("template_count", len(set.Templates)),
		slog.String("path", s.path))
	return nil
}

func (s *TemplateStore) readFile() (domain.TemplateSet, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		return domain.TemplateSet{}, fmt.Errorf("%w: failed to read account templates %s: %v", apperrors.ErrValidation, s.path, err)
	}

	var f templateFile
	if err := v.Unmarshal(&f); err != nil {
		return domain.TemplateSet{}, fmt.Errorf("%w: failed to decode account templates %s: %v", apperrors.ErrValidation, s.path, err)
	}

	set := domain.TemplateSet{
		Version:   f.Version,
		Templates: make(map[domain.SourceType]domain.AccountTemplate, len(f.Templates)),
	}
	for key, t := range f.Templates {
		if t.SourceType == "" {
			t.SourceType = domain.SourceType(key)
		}
		set.Templates[domain.SourceType(key)] = t
	}
	return set, nil
}

func (s *TemplateStore) check(set domain.TemplateSet) error {
	for st, t := range set.Templates {
		if err := s.validate.Struct(t); err != nil {
			return fmt.Errorf("%w: template %s: %v", validationKind(err), st, err)
		}
	}
	return set.Validate()
}

// validationKind reports ErrInvalidAccountCode when a debit or credit code
// failed its tags and ErrValidation for any other malformed field.
func validationKind(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.ErrValidation
	}
	for _, fe := range fieldErrs {
		switch fe.StructField() {
		case "Debit", "Credit":
			return apperrors.ErrInvalidAccountCode
		}
	}
	return apperrors.ErrValidation
}

// Watch reloads the template file whenever it changes, until ctx is done.
// Reload failures are logged and the previous set stays active.
func (s *TemplateStore) Watch(ctx context.Context) error {
	if s.path == "" {
		return fmt.Errorf("%w: no template file configured", apperrors.ErrValidation)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors and config-map mounts replace the file
	// rather than writing it in place.
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return err
	}
	target := filepath.Clean(s.path)
	s.logger.Info("Watching account templates", slog.String("path", target))

	go func() {
		defer w.Close()
		ticker := time.NewTicker(watchDebounce / 2)
		defer ticker.Stop()
		var changedAt time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					changedAt = time.Now()
				}
			case <-ticker.C:
				if changedAt.IsZero() || time.Since(changedAt) < watchDebounce {
					continue
				}
				changedAt = time.Time{}
				if err := s.Reload(); err != nil {
					s.logger.Error("Account template reload failed, keeping previous set",
						slog.String("path", target), slog.String("error", err.Error()))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("Template watcher error", slog.String("error", err.Error()))
			}
		}
	}()
	return nil
}
