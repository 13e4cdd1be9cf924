package config

import "fmt"

// Validate checks the config for errors, in the same message register as
// this family of tools uses elsewhere ("config: ...").
func Validate(cfg *PipelineConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("config: 'name' is required")
	}
	if len(cfg.Phases) == 0 {
		return fmt.Errorf("config: at least one phase is required")
	}

	seen := make(map[string]bool, len(cfg.Phases))
	for i := range cfg.Phases {
		p := &cfg.Phases[i]
		if p.Name == "" {
			return fmt.Errorf("config: phase %d: 'name' is required", i+1)
		}
		if seen[p.Name] {
			return fmt.Errorf("config: duplicate phase name %q", p.Name)
		}
		seen[p.Name] = true

		if p.Script == "" {
			return fmt.Errorf("config: phase %q: 'script' is required", p.Name)
		}
		if p.TimeoutSecs <= 0 {
			p.TimeoutSecs = 3600
		}
		for _, g := range p.GatesAfter {
			if !isKnownGate(g) {
				return fmt.Errorf("config: phase %q: gates_after: unknown gate %q", p.Name, g)
			}
		}
	}

	for name := range cfg.Gates {
		if !isKnownGate(name) {
			return fmt.Errorf("config: gates: unknown gate %q", name)
		}
	}

	return nil
}

func isKnownGate(name string) bool {
	for _, n := range GateNames {
		if n == name {
			return true
		}
	}
	return false
}
