package lang

import "github.com/ardnew/mung"

// LuaFile is one script a caller materializes to disk: a reference to an
// existing file, or an inline body carried in the DSL source.
type LuaFile struct {
	Name    string
	Inline  bool
	Path    string
	Content string
}

// LuaFiles returns the scripts declared by top-level lua blocks, in
// declaration order. This is a collaborator-facing accessor for callers
// that write referenced script bodies to disk; it is not part of the
// render path.
func (cfg *Config) LuaFiles() []LuaFile {
	files := make([]LuaFile, 0, len(cfg.Lua))

	for _, s := range cfg.Lua {
		f := LuaFile{Name: s.Name}

		if s.SourceType.Str == "inline" || (!s.Path.IsSet() && s.Content.IsSet()) {
			f.Inline = true
			f.Content = s.Content.Str
		} else {
			f.Path = s.Path.Str
		}

		files = append(files, f)
	}

	return files
}

// LuaPackagePath folds the global lua-prepend-path entries into a Lua
// package.path string, prepended to base in declaration order.
func (cfg *Config) LuaPackagePath(base string) string {
	if cfg.Global == nil || len(cfg.Global.LuaPrependPath) == 0 {
		return base
	}

	prefixes := make([]string, len(cfg.Global.LuaPrependPath))
	for i, v := range cfg.Global.LuaPrependPath {
		prefixes[i] = v.Text()
	}

	// Lua delimits package.path entries with semicolons.
	return mung.Make(
		mung.WithSubjectItems(base),
		mung.WithDelim(";"),
		mung.WithPrefixItems(prefixes...),
	).String()
}
