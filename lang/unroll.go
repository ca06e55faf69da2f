package lang

// Loop unrolling runs after resolution, so every loop header carries
// literal integer bounds and a snapshot of the scope visible at its site.
// Each iteration clones the body, binds the loop variable, and resolves
// the clone against that snapshot; nested loops resolve their own headers
// during this pass and recurse.

func (r *resolver) unrollConfig(cfg *Config) error {
	items, err := r.unrollTopItems(cfg.Items)
	if err != nil {
		return err
	}

	cfg.Items = items

	return nil
}

func (r *resolver) unrollTopItems(items []TopItem) ([]TopItem, error) {
	var out []TopItem

	for i := range items {
		item := items[i]

		if item.Loop != nil {
			expanded, err := r.unrollTopLoop(item.Loop)
			if err != nil {
				return nil, err
			}

			out = append(out, expanded...)

			continue
		}

		if err := r.unrollSectionServers(&item); err != nil {
			return nil, err
		}

		out = append(out, item)
	}

	return out, nil
}

// unrollSectionServers expands the pending loops inside a section's
// servers block.
func (r *resolver) unrollSectionServers(item *TopItem) error {
	var bp *backendProps

	switch {
	case item.Backend != nil:
		bp = &item.Backend.backendProps
	case item.Listen != nil:
		bp = &item.Listen.backendProps
	default:
		return nil
	}

	servers, err := r.unrollServerItems(bp.Servers)
	if err != nil {
		return err
	}

	bp.Servers = servers

	return nil
}

func (r *resolver) unrollTopLoop(loop *Loop[TopItem]) ([]TopItem, error) {
	var out []TopItem

	for i := loop.Lo.Int; i <= loop.Hi.Int; i++ {
		isc := r.iterationScope(loop.env, loop.Var, i, loop.Lets)

		for _, elem := range loop.Body {
			c := elem.clone()

			if err := r.resolveItem(&c, isc); err != nil {
				return nil, err
			}

			expanded, err := r.unrollTopItems([]TopItem{c})
			if err != nil {
				return nil, err
			}

			out = append(out, expanded...)
		}
	}

	return out, nil
}

func (r *resolver) unrollServerItems(items []ServerItem) ([]ServerItem, error) {
	var out []ServerItem

	for i := range items {
		item := items[i]

		if item.Loop == nil {
			out = append(out, item)

			continue
		}

		expanded, err := r.unrollServerLoop(item.Loop)
		if err != nil {
			return nil, err
		}

		out = append(out, expanded...)
	}

	return out, nil
}

func (r *resolver) unrollServerLoop(loop *Loop[ServerItem]) ([]ServerItem, error) {
	var out []ServerItem

	for i := loop.Lo.Int; i <= loop.Hi.Int; i++ {
		isc := r.iterationScope(loop.env, loop.Var, i, loop.Lets)

		for _, elem := range loop.Body {
			c := elem.clone()

			if err := r.resolveServerItem(&c, isc); err != nil {
				return nil, err
			}

			expanded, err := r.unrollServerItems([]ServerItem{c})
			if err != nil {
				return nil, err
			}

			out = append(out, expanded...)
		}
	}

	return out, nil
}

// iterationScope rebuilds the loop-site scope with the loop variable
// bound for one iteration. Body-level lets stack on top so they can
// reference the variable.
func (r *resolver) iterationScope(env map[string]any, name string, i int64, lets []Let) *scope {
	sc := scopeFromEnv(env)
	sc.bind(name, int(i))

	return newScope(sc, lets)
}
