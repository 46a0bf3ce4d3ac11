package build

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/vango-dev/sitepack/internal/errors"
	"github.com/vango-dev/sitepack/internal/manifest"
	"github.com/vango-dev/sitepack/internal/pack"
)

// ManifestName is the file mapping logical asset names to hashed ones.
const ManifestName = manifest.Name

type metafile struct {
	Outputs map[string]outputInfo `json:"outputs"`
}

type outputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	Imports    []importInfo `json:"imports"`
	CSSBundle  string       `json:"cssBundle"`
	Bytes      int64        `json:"bytes"`
}

type importInfo struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// collectStats reads the esbuild metafile into pack.Stats. Output paths in
// the metafile are relative to workDir; Stats paths are relative to outDir.
func collectStats(raw, workDir, outDir string, module bool) (*pack.Stats, error) {
	var meta metafile
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, errors.New("E122").Wrap(err)
	}

	rel := func(p string) string {
		if !filepath.IsAbs(p) {
			p = filepath.Join(workDir, filepath.FromSlash(p))
		}
		r, err := filepath.Rel(outDir, p)
		if err != nil {
			return filepath.ToSlash(p)
		}
		return filepath.ToSlash(r)
	}

	stats := &pack.Stats{
		OutDir:      outDir,
		Entrypoints: make(map[string]*pack.Entrypoint),
		Module:      module,
	}

	for out, info := range meta.Outputs {
		if strings.HasSuffix(out, ".map") {
			continue
		}
		stats.Files = append(stats.Files, rel(out))

		if info.EntryPoint == "" || strings.HasSuffix(out, ".css") {
			continue
		}
		name := entryName(info.EntryPoint)
		ep := &pack.Entrypoint{Scripts: []string{rel(out)}}
		if info.CSSBundle != "" {
			ep.Styles = []string{rel(info.CSSBundle)}
		}
		for _, chunk := range staticImports(meta, out, map[string]bool{out: true}) {
			ep.Chunks = append(ep.Chunks, rel(chunk))
		}
		stats.Entrypoints[name] = ep
	}

	sort.Strings(stats.Files)
	return stats, nil
}

// staticImports returns the chunks an output loads eagerly, depth first.
func staticImports(meta metafile, out string, visited map[string]bool) []string {
	var chunks []string
	for _, imp := range meta.Outputs[out].Imports {
		if imp.Kind != "import-statement" || visited[imp.Path] {
			continue
		}
		if _, ok := meta.Outputs[imp.Path]; !ok {
			continue
		}
		visited[imp.Path] = true
		chunks = append(chunks, imp.Path)
		chunks = append(chunks, staticImports(meta, imp.Path, visited)...)
	}
	return chunks
}

// entryName strips directories, namespace and extension from an entry path.
func entryName(entryPoint string) string {
	if i := strings.LastIndex(entryPoint, ":"); i >= 0 {
		entryPoint = entryPoint[i+1:]
	}
	base := path.Base(filepath.ToSlash(entryPoint))
	return strings.TrimSuffix(base, path.Ext(base))
}

// renameStyles renames every extracted entry stylesheet to pattern, where
// [name] is the entry name and [hash] the first eight hex digits of the
// content's SHA-256.
func renameStyles(fsys afero.Fs, stats *pack.Stats, pattern string) error {
	renamed := make(map[string]string)
	for name, ep := range stats.Entrypoints {
		for i, style := range ep.Styles {
			src := filepath.Join(stats.OutDir, filepath.FromSlash(style))
			data, err := afero.ReadFile(fsys, src)
			if err != nil {
				return errors.New("E123").Wrap(err)
			}

			target := strings.NewReplacer(
				"[name]", name,
				"[id]", name,
				"[hash]", hashBytes(data)[:8],
				"[contenthash]", hashBytes(data)[:8],
				"[chunkhash]", hashBytes(data)[:8],
			).Replace(pattern)
			target = path.Join(path.Dir(style), target)
			if target == style {
				continue
			}

			dst := filepath.Join(stats.OutDir, filepath.FromSlash(target))
			if err := fsys.Rename(src, dst); err != nil {
				return errors.New("E123").Wrap(err)
			}
			if ok, _ := afero.Exists(fsys, src+".map"); ok {
				if err := fsys.Rename(src+".map", dst+".map"); err != nil {
					return errors.New("E123").Wrap(err)
				}
				data = []byte(strings.Replace(string(data),
					"sourceMappingURL="+path.Base(style)+".map",
					"sourceMappingURL="+path.Base(target)+".map", 1))
				if err := afero.WriteFile(fsys, dst, data, 0644); err != nil {
					return errors.New("E123").Wrap(err)
				}
				renamed[style+".map"] = target + ".map"
			}

			renamed[style] = target
			ep.Styles[i] = target
		}
	}

	for i, f := range stats.Files {
		if to, ok := renamed[f]; ok {
			stats.Files[i] = to
		}
	}
	sort.Strings(stats.Files)
	return nil
}

// buildManifest maps "<entry>.js" and "<entry>.css" to the hashed file names.
func buildManifest(stats *pack.Stats) *manifest.Manifest {
	m := manifest.New()
	for name, ep := range stats.Entrypoints {
		for _, s := range ep.Scripts {
			m.Set(name+".js", s)
		}
		for _, s := range ep.Styles {
			m.Set(name+".css", s)
		}
	}
	return m
}

func writeManifest(fsys afero.Fs, stats *pack.Stats) error {
	if err := buildManifest(stats).Write(fsys, filepath.Join(stats.OutDir, ManifestName)); err != nil {
		return errors.New("E123").Wrap(err)
	}
	stats.Files = append(stats.Files, ManifestName)
	sort.Strings(stats.Files)
	return nil
}

// hashBytes returns the hex SHA-256 of data.
func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
