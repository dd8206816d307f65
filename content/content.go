/*
Copyright © 2025 Benny Powers

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package content implements C6, the content builder: combining a
// generator's rendered output with the $genie package.json marker
// enrichment, the per-extension prologue, and the C5 formatter into the
// final bytes written to a target.
package content

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"

	"bennypowers.dev/cem/format"
	"bennypowers.dev/cem/genie"
	"bennypowers.dev/cem/internal/config"
	"bennypowers.dev/cem/internal/platform"
	"bennypowers.dev/cem/loader"
)

// Expected is the C6 result: the resolved target path and the exact bytes
// that should be written there.
type Expected struct {
	TargetPath string
	Bytes      []byte
}

// genieMarker is the replacement value written into a package.json's
// "$genie" key, per spec.md §4.6 step 3.
type genieMarker struct {
	Source  string `json:"source"`
	Warning string `json:"warning"`
}

const genieMarkerWarning = "DO NOT EDIT - changes will be overwritten"

// Build implements buildExpected: loading the generator (unless preloaded),
// rendering it, enriching package.json's $genie marker, prefixing the
// appropriate prologue, and running the result through the formatter.
func Build(
	fsys platform.FileSystem,
	source string,
	opts loader.Options,
	formatterCfg *config.FormatterConfig,
	preloaded *loader.LoadedGenerator,
) (Expected, error) {
	lg := preloaded
	if lg == nil {
		loaded, err := loader.Load(fsys, source, opts)
		if err != nil {
			return Expected{}, err
		}
		lg = loaded
	}

	raw, err := lg.Render()
	if err != nil {
		return Expected{}, &genie.ImportError{Source: source, Cause: err}
	}

	targetPath := genie.TargetPath(source)
	basename := filepath.Base(targetPath)

	if basename == "package.json" {
		raw = enrichGenieMarker(raw, filepath.Base(source))
	}

	header := prologueFor(targetPath, filepath.Base(source))
	formatted := format.Format(fsys, opts.Cwd, targetPath, []byte(raw), formatterCfg)

	var buf bytes.Buffer
	buf.WriteString(header)
	buf.Write(formatted)

	return Expected{TargetPath: targetPath, Bytes: buf.Bytes()}, nil
}

// enrichGenieMarker replaces an existing top-level "$genie" key's value
// with the standard warning marker. Parse failures leave raw untouched per
// spec.md §9's open-question resolution (swallow, don't fail loud).
//
// The TS original's JSON.stringify preserves a package.json's original key
// order; map[string]json.RawMessage does not, so the original top-level key
// order is recovered separately via orderedTopLevelKeys and used to rebuild
// the document, rather than letting encoding/json sort keys alphabetically.
func enrichGenieMarker(raw, sourceBasename string) string {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return raw
	}
	if _, ok := doc["$genie"]; !ok {
		return raw
	}

	marker, err := json.Marshal(genieMarker{
		Source:  sourceBasename,
		Warning: genieMarkerWarning,
	})
	if err != nil {
		return raw
	}
	doc["$genie"] = marker

	keys := orderedTopLevelKeys(raw)
	if keys == nil {
		keys = make([]string, 0, len(doc))
		for k := range doc {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}

	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			compact.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return raw
		}
		compact.Write(keyBytes)
		compact.WriteByte(':')
		compact.Write(doc[k])
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return raw
	}
	return out.String()
}

// orderedTopLevelKeys walks raw's top-level object with a token-by-token
// json.Decoder to recover its key order, returning nil if raw is not a JSON
// object (the caller falls back to alphabetical order in that case).
func orderedTopLevelKeys(raw string) []string {
	dec := json.NewDecoder(strings.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil
		}
	}
	return keys
}

// prologueFor selects the generated-file header per spec.md §6's
// extension/basename table, naming the generator source by its basename.
func prologueFor(targetPath, sourceBasename string) string {
	basename := filepath.Base(targetPath)
	ext := strings.ToLower(filepath.Ext(targetPath))

	switch {
	case strings.HasPrefix(basename, "tsconfig") && ext == ".json":
		return "// Generated file - DO NOT EDIT\n// Source: " + sourceBasename + "\n"
	case ext == ".jsonc":
		return "// Generated file - DO NOT EDIT\n// Source: " + sourceBasename + "\n"
	case ext == ".json":
		return ""
	case ext == ".yml", ext == ".yaml":
		return "# Generated file - DO NOT EDIT\n# Source: " + sourceBasename + "\n\n"
	default:
		return "// Generated file - DO NOT EDIT\n// Source: " + sourceBasename + "\n"
	}
}
