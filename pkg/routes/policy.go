package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/observability"
	"github.com/IsmailofficialGithub/inboundAdmin-sub003/pkg/roles"
)

// Rule grants access to a resource path prefix. An empty role list means any
// authenticated admin.
type Rule struct {
	Prefix string       `json:"prefix"`
	Roles  []roles.Role `json:"roles,omitempty"`
}

// DefaultRules is the built-in policy used when no policy file is configured
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "tax-configuration", Roles: []roles.Role{roles.RoleFinance}},
		{Prefix: "credits/transactions", Roles: []roles.Role{roles.RoleFinance}},
		{Prefix: "2fa/users", Roles: []roles.Role{roles.RoleSupport}},
		{Prefix: "verification-tokens", Roles: []roles.Role{roles.RoleSupport}},
		{Prefix: "user-emails", Roles: []roles.Role{roles.RoleSupport}},
		{Prefix: "account-deactivations", Roles: []roles.Role{roles.RoleSupport}},
		{Prefix: "security", Roles: []roles.Role{roles.RoleSuperAdmin}},
		{Prefix: "call-schedules", Roles: []roles.Role{roles.RoleOps}},
		{Prefix: "holidays", Roles: []roles.Role{roles.RoleOps}},
		{Prefix: "email-templates"},
		{Prefix: "ai-prompts"},
		{Prefix: "knowledge-bases"},
	}
}

// Policy answers "which roles may touch this resource". Lookups use
// longest-prefix match; an unmatched resource requires no specific role.
type Policy struct {
	logger *observability.Logger

	mu    sync.RWMutex
	rules []Rule
}

// NewPolicy creates a policy from the given rules; nil means DefaultRules
func NewPolicy(rules []Rule, logger *observability.Logger) *Policy {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if rules == nil {
		rules = DefaultRules()
	}
	p := &Policy{logger: logger.WithField("component", "route_policy")}
	p.replace(rules)
	return p
}

// LoadFile replaces the policy with the rules in a JSON file
func (p *Policy) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read policy file: %w", err)
	}

	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return fmt.Errorf("parse policy file %s: %w", path, err)
	}
	for i, rule := range rules {
		if rule.Prefix == "" {
			return fmt.Errorf("policy file %s: rule %d has no prefix", path, i)
		}
		for _, role := range rule.Roles {
			if !role.Valid() {
				return fmt.Errorf("policy file %s: rule %q names unknown role %q", path, rule.Prefix, role)
			}
		}
	}

	p.replace(rules)
	p.logger.WithFields(map[string]interface{}{
		"path":  path,
		"rules": len(rules),
	}).Info("route policy loaded")
	return nil
}

// replace installs rules sorted longest-prefix-first so lookup can stop at
// the first match
func (p *Policy) replace(rules []Rule) {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})

	p.mu.Lock()
	p.rules = sorted
	p.mu.Unlock()
}

// RequiredRoles returns the role set for a resource path, or nil when any
// authenticated admin may access it
func (p *Policy) RequiredRoles(resource string) []roles.Role {
	resource = strings.Trim(resource, "/")

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, rule := range p.rules {
		if resource == rule.Prefix || strings.HasPrefix(resource, rule.Prefix+"/") {
			return rule.Roles
		}
	}
	return nil
}

// Watch reloads the policy file whenever it changes, until ctx is cancelled.
// A reload failure keeps the previous policy in place.
func (p *Policy) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create policy watcher: %w", err)
	}

	// Watch the directory: editors often replace the file, which would drop
	// a watch on the file itself
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch policy dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := p.LoadFile(path); err != nil {
					p.logger.WithError(err).Warn("route policy reload failed, keeping previous policy")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.logger.WithError(err).Warn("route policy watcher error")
			}
		}
	}()
	return nil
}
