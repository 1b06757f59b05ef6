package generator

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/ternarybob/sonargate/internal/interfaces"
	"github.com/ternarybob/sonargate/internal/models"
)

// ModuleGroup collects the files of one module
type ModuleGroup struct {
	Title   string
	BaseDir string
	Files   []string // relative to BaseDir
}

// Partition assigns each file to the first module (by name) whose path matches
// the file's directory. Files matching no module are returned as residual.
// Groups are keyed by module path; two populated modules sharing a display
// title cannot both be declared and are rejected.
func Partition(files []string, modules []models.ModuleRecord, match interfaces.MatchStrategy) ([]ModuleGroup, []string, error) {
	ordered := append([]models.ModuleRecord(nil), modules...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Name == ordered[j].Name {
			return ordered[i].Path < ordered[j].Path
		}
		return ordered[i].Name < ordered[j].Name
	})

	groups := make(map[string]*ModuleGroup)
	seen := make(map[string]map[string]bool)
	var residual []string

	for _, file := range files {
		dir := path.Dir(strings.ReplaceAll(file, "\\", "/"))
		assigned := false
		for _, m := range ordered {
			if !match.MatchPath(dir, m.Path) {
				continue
			}
			key := strings.ToLower(strings.TrimSuffix(strings.ReplaceAll(m.Path, "\\", "/"), "/"))
			g, ok := groups[key]
			if !ok {
				g = &ModuleGroup{Title: ModuleTitle(m.Name), BaseDir: m.Path}
				groups[key] = g
				seen[key] = make(map[string]bool)
			}
			rel := stripModulePath(file, m.Path)
			if !seen[key][rel] {
				seen[key][rel] = true
				g.Files = append(g.Files, rel)
			}
			assigned = true
			break
		}
		if !assigned {
			residual = append(residual, file)
		}
	}

	result := make([]ModuleGroup, 0, len(groups))
	for _, g := range groups {
		sort.Strings(g.Files)
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Title == result[j].Title {
			return result[i].BaseDir < result[j].BaseDir
		}
		return result[i].Title < result[j].Title
	})

	for i := 1; i < len(result); i++ {
		if result[i].Title == result[i-1].Title {
			return nil, nil, fmt.Errorf("modules at %s and %s share the title %s", result[i-1].BaseDir, result[i].BaseDir, result[i].Title)
		}
	}

	return result, residual, nil
}

// RenderModules produces the modules block: a header listing module titles
// followed by a base-directory and sources declaration per module.
func RenderModules(groups []ModuleGroup) string {
	if len(groups) == 0 {
		return ""
	}

	titles := make([]string, 0, len(groups))
	for _, g := range groups {
		titles = append(titles, g.Title)
	}

	var b strings.Builder
	b.WriteString("sonar.modules=" + strings.Join(titles, ",") + "\n")
	for _, g := range groups {
		b.WriteString("\n")
		b.WriteString(g.Title + ".sonar.projectBaseDir=" + g.BaseDir + "\n")
		b.WriteString(g.Title + ".sonar.sources=" + strings.Join(g.Files, ",") + "\n")
	}
	return b.String()
}

// stripModulePath removes the first occurrence of "<modulePath>/" from file,
// comparing case-insensitively like the module match itself.
func stripModulePath(file, modulePath string) string {
	file = strings.ReplaceAll(file, "\\", "/")
	prefix := strings.TrimSuffix(strings.ReplaceAll(modulePath, "\\", "/"), "/") + "/"
	idx := strings.Index(strings.ToLower(file), strings.ToLower(prefix))
	if idx < 0 {
		return file
	}
	return file[:idx] + file[idx+len(prefix):]
}
