package toolchain

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/magiconair/properties"
	"golang.org/x/net/html/charset"
)

// antProject is the part of build.xml evaluated at configure time: the
// project attributes and its top-level tasks. Tasks nested in targets only
// run when the target executes, so they never contribute properties here.
type antProject struct {
	XMLName xml.Name  `xml:"project"`
	Name    string    `xml:"name,attr"`
	Basedir string    `xml:"basedir,attr"`
	Tasks   []antTask `xml:",any"`
}

type antTask struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
}

func (t antTask) attr(name string) (string, bool) {
	for _, a := range t.Attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value, true
		}
	}
	return "", false
}

// LoadProperties evaluates the top-level property definitions of an Ant
// build file the way Ant does while configuring a project: properties are
// immutable (first definition wins), ${...} references are expanded against
// what is already defined, property files and environment prefixes are
// honoured and <import>/<include> files are followed.
func LoadProperties(buildFile string) (map[string]string, error) {
	abs, err := filepath.Abs(buildFile)
	if err != nil {
		return nil, err
	}
	ev := &antEvaluator{
		props:   make(map[string]string),
		visited: make(map[string]bool),
	}
	if err := ev.evalFile(abs, true); err != nil {
		return nil, err
	}
	return ev.props, nil
}

type antEvaluator struct {
	props   map[string]string
	visited map[string]bool
	basedir string
}

func (ev *antEvaluator) define(name, value string) {
	if _, exists := ev.props[name]; exists {
		return
	}
	ev.props[name] = value
}

func (ev *antEvaluator) evalFile(path string, main bool) error {
	if ev.visited[path] {
		return nil
	}
	ev.visited[path] = true

	project, err := parseProject(path)
	if err != nil {
		return err
	}

	if main {
		basedir := project.Basedir
		if basedir == "" {
			basedir = "."
		}
		if !filepath.IsAbs(basedir) {
			basedir = filepath.Join(filepath.Dir(path), basedir)
		}
		ev.basedir = filepath.Clean(basedir)
		ev.define("basedir", ev.basedir)
		ev.define("ant.file", path)
		if project.Name != "" {
			ev.define("ant.project.name", project.Name)
		}
	}
	if project.Name != "" {
		ev.define("ant.file."+project.Name, path)
	}

	for _, task := range project.Tasks {
		switch task.XMLName.Local {
		case "property":
			if err := ev.property(task); err != nil {
				return err
			}
		case "loadproperties":
			if src, ok := task.attr("srcFile"); ok {
				prefix, _ := task.attr("prefix")
				if err := ev.propertyFile(ev.expand(src), prefix); err != nil {
					return err
				}
			}
		case "import", "include":
			if err := ev.importFile(path, task); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ev *antEvaluator) property(task antTask) error {
	if name, ok := task.attr("name"); ok && name != "" {
		name = ev.expand(name)
		if value, ok := task.attr("value"); ok {
			ev.define(name, ev.expand(value))
		} else if loc, ok := task.attr("location"); ok {
			ev.define(name, ev.resolve(ev.expand(loc)))
		}
		return nil
	}
	if file, ok := task.attr("file"); ok {
		prefix, _ := task.attr("prefix")
		return ev.propertyFile(ev.expand(file), prefix)
	}
	if env, ok := task.attr("environment"); ok {
		prefix := strings.TrimSuffix(env, ".") + "."
		for _, kv := range os.Environ() {
			k, v, found := strings.Cut(kv, "=")
			if found {
				ev.define(prefix+k, v)
			}
		}
	}
	return nil
}

// propertyFile loads a Java properties file. A missing file is not an error,
// Ant only logs it.
func (ev *antEvaluator) propertyFile(file, prefix string) error {
	path := ev.resolve(file)
	loader := properties.Loader{
		Encoding:         properties.ISO_8859_1,
		DisableExpansion: true,
		IgnoreMissing:    true,
	}
	p, err := loader.LoadFile(path)
	if err != nil {
		return fmt.Errorf("toolchain: loading property file %s: %w", path, err)
	}
	if prefix != "" {
		prefix = strings.TrimSuffix(prefix, ".") + "."
	}
	for _, key := range p.Keys() {
		value, _ := p.Get(key)
		ev.define(prefix+key, ev.expand(value))
	}
	return nil
}

func (ev *antEvaluator) importFile(from string, task antTask) error {
	file, ok := task.attr("file")
	if !ok || file == "" {
		return nil
	}
	file = ev.expand(file)
	if !filepath.IsAbs(file) {
		file = filepath.Join(filepath.Dir(from), file)
	}
	file = filepath.Clean(file)

	if _, err := os.Stat(file); err != nil {
		optional, _ := task.attr("optional")
		if errors.Is(err, fs.ErrNotExist) && optional == "true" {
			return nil
		}
		return fmt.Errorf("toolchain: importing %s: %w", file, err)
	}
	return ev.evalFile(file, false)
}

func (ev *antEvaluator) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(ev.basedir, p)
}

// expand substitutes ${name} references with defined properties. Undefined
// references stay literal and "$$" collapses to "$", as in Ant.
func (ev *antEvaluator) expand(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case '$':
			b.WriteByte('$')
			i++
		case '{':
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				b.WriteString(s[i:])
				return b.String()
			}
			name := s[i+2 : i+2+end]
			if v, ok := ev.props[name]; ok {
				b.WriteString(v)
			} else {
				b.WriteString(s[i : i+3+end])
			}
			i += 2 + end
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func parseProject(path string) (*antProject, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	dec.Strict = false
	dec.CharsetReader = charset.NewReaderLabel

	var project antProject
	if err := dec.Decode(&project); err != nil {
		return nil, fmt.Errorf("toolchain: parsing %s: %w", path, err)
	}
	return &project, nil
}
