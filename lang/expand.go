package lang

import "errors"

// Template expansion runs after unrolling so every cloned server expands
// independently. The merge is additive only: a template never overwrites
// an explicit value or one filled by an earlier spread. Missing templates
// contribute nothing; the validator reports them as warnings.

func expandConfig(cfg *Config) error {
	if cfg.Defaults != nil {
		if err := cfg.applySpreads(cfg.Defaults, cfg.Defaults.spreads); err != nil {
			return err
		}
	}

	for i := range cfg.Items {
		if err := cfg.expandItem(&cfg.Items[i]); err != nil {
			return err
		}
	}

	return nil
}

func (cfg *Config) expandItem(item *TopItem) error {
	switch {
	case item.Frontend != nil:
		fe := item.Frontend

		if err := cfg.applySpreads(fe, fe.spreads); err != nil {
			return err
		}

		return cfg.expandBinds(fe.Binds)

	case item.Backend != nil:
		be := item.Backend

		if err := cfg.applySpreads(be, be.spreads); err != nil {
			return err
		}

		return cfg.expandBackendProps(&be.backendProps)

	case item.Listen != nil:
		li := item.Listen

		if err := cfg.applySpreads(li, li.spreads); err != nil {
			return err
		}

		if err := cfg.expandBinds(li.Binds); err != nil {
			return err
		}

		return cfg.expandBackendProps(&li.backendProps)

	default:
		return nil
	}
}

func (cfg *Config) expandBinds(binds []*Bind) error {
	for _, b := range binds {
		if err := cfg.applySpreads(b, b.spreads); err != nil {
			return err
		}
	}

	return nil
}

func (cfg *Config) expandBackendProps(bp *backendProps) error {
	if hc := bp.HealthCheck; hc != nil {
		if err := cfg.applySpreads(hc, hc.spreads); err != nil {
			return err
		}
	}

	if ds := bp.DefaultServer; ds != nil {
		if err := cfg.applySpreads(ds, ds.spreads); err != nil {
			return err
		}
	}

	for _, item := range bp.Servers {
		if item.Server == nil {
			continue
		}

		if err := cfg.applySpreads(item.Server, item.Server.spreads); err != nil {
			return err
		}
	}

	return nil
}

// applySpreads merges the referenced templates into the target, in the
// order the spreads were written.
func (cfg *Config) applySpreads(target propTarget, refs []spreadRef) error {
	for _, ref := range refs {
		tpl, ok := cfg.Templates[ref.Name]
		if !ok {
			cfg.missingSpreads = append(cfg.missingSpreads, ref)

			continue
		}

		if err := mergeProps(target, tpl); err != nil {
			return err
		}
	}

	return nil
}

// mergeProps copies each template property the target has not set,
// skipping keys the target has no field for. Properties apply in template
// declaration order so merging is deterministic.
func mergeProps(target propTarget, tpl *Template) error {
	for _, key := range tpl.Keys {
		if target.isSet(key) {
			continue
		}

		err := target.applyProp(key, tpl.Props[key].Clone())
		if errors.Is(err, errUnknownProp) {
			continue
		}

		if err != nil {
			return err
		}
	}

	return nil
}
