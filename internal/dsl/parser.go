package dsl

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	entityRe = regexp.MustCompile(`^entity\s+(\w+):`)
	fieldRe  = regexp.MustCompile(`^\s*([\w_]+):\s*([^\s#]+)(.*)$`)
	enumRe   = regexp.MustCompile(`^enum\[\s*([A-Za-z_][A-Za-z0-9_]*)\s*\]$`)
	moduleRe = regexp.MustCompile(`^\s*module\s+([A-Za-z0-9_.-]+)\s*$`)
)

var primitives = map[string]bool{
	"string": true, "int": true, "float": true, "bool": true, "date": true, "datetime": true,
}

// splitOptionTokens делит "k=v k2='v 2'" на токены, не рвёт по пробелам внутри кавычек/скобок
func splitOptionTokens(s string) []string {
	var out []string
	var buf []rune
	inSingle, inDouble := false, false
	bracketDepth := 0

	flush := func() {
		if len(buf) > 0 {
			out = append(out, string(buf))
			buf = buf[:0]
		}
	}

	for _, r := range s {
		switch r {
		case '\'':
			if !inDouble && bracketDepth == 0 {
				inSingle = !inSingle
			}
			buf = append(buf, r)
		case '"':
			if !inSingle && bracketDepth == 0 {
				inDouble = !inDouble
			}
			buf = append(buf, r)
		case '[':
			if !inSingle && !inDouble {
				bracketDepth++
			}
			buf = append(buf, r)
		case ']':
			if !inSingle && !inDouble && bracketDepth > 0 {
				bracketDepth--
			}
			buf = append(buf, r)
		default:
			if (r == ' ' || r == '\t') && !inSingle && !inDouble && bracketDepth == 0 {
				flush()
				continue
			}
			buf = append(buf, r)
		}
	}
	flush()
	return out
}

// Parse читает DSL из r. name используется только в сообщениях об ошибках.
func Parse(r io.Reader, name string) ([]*Entity, error) {
	var entities []*Entity
	var current *Entity
	currentModule := ""
	lineNo := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := moduleRe.FindStringSubmatch(line); m != nil {
			currentModule = m[1]
			continue
		}

		if m := entityRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				entities = append(entities, current)
			}
			current = &Entity{Name: m[1], Module: currentModule}
			continue
		}
		if current == nil {
			// всё вне сущности игнорируем
			continue
		}

		m := fieldRe.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("%s:%d: unexpected line %q", name, lineNo, line)
		}
		f, err := parseField(m[1], m[2], m[3])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %s.%s: %w", name, lineNo, current.Name, m[1], err)
		}
		if _, dup := current.Field(f.Name); dup {
			return nil, fmt.Errorf("%s:%d: %s: duplicate field %q", name, lineNo, current.Name, f.Name)
		}
		current.Fields = append(current.Fields, f)
	}

	if current != nil {
		entities = append(entities, current)
	}
	return entities, scanner.Err()
}

func parseField(name, rawType, tail string) (Field, error) {
	// склейка оборванного типа: "enum[ Booking ]"
	if strings.HasPrefix(rawType, "enum[") && !strings.Contains(rawType, "]") {
		if idx := strings.Index(tail, "]"); idx >= 0 {
			rawType = rawType + tail[:idx+1]
			tail = tail[idx+1:]
		}
	}

	optsRaw := strings.TrimSpace(tail)
	if i := strings.IndexByte(optsRaw, '#'); i >= 0 {
		optsRaw = strings.TrimSpace(optsRaw[:i])
	}
	if strings.HasPrefix(strings.ToLower(optsRaw), "options:") {
		optsRaw = strings.TrimSpace(optsRaw[len("options:"):])
	}
	optsRaw = strings.ReplaceAll(optsRaw, ",", " ")

	f := Field{Name: name, Type: strings.ToLower(rawType), Options: map[string]string{}}
	switch {
	case enumRe.MatchString(rawType):
		f.Type = "enum"
		f.EnumType = enumRe.FindStringSubmatch(rawType)[1]
	case strings.HasPrefix(rawType, "enum["):
		return Field{}, fmt.Errorf("enum type must be a single type name, got %q", rawType)
	case !primitives[f.Type]:
		return Field{}, fmt.Errorf("unknown field type %q", rawType)
	}

	for _, tok := range splitOptionTokens(optsRaw) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		// флаг без значения → "true"
		if !strings.Contains(tok, "=") {
			f.Options[strings.ToLower(tok)] = "true"
			continue
		}
		kv := strings.SplitN(tok, "=", 2)
		k := strings.ToLower(strings.TrimSpace(kv[0]))
		v := strings.TrimSpace(kv[1])
		if len(v) >= 2 {
			if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
				v = v[1 : len(v)-1]
			}
		}
		if k != "" {
			f.Options[k] = v
		}
	}
	return f, nil
}

// LoadEntities читает один .dsl файл
func LoadEntities(path string) ([]*Entity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file, path)
}

// LoadAllEntities обходит каталог и собирает сущности всех .dsl файлов по FQN.
func LoadAllEntities(root string) (map[string]*Entity, error) {
	result := make(map[string]*Entity)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".dsl") {
			return nil
		}

		ents, err := LoadEntities(path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for _, e := range ents {
			if e == nil || e.Name == "" {
				return fmt.Errorf("empty entity name in %s", path)
			}
			if e.Module == "" {
				return fmt.Errorf("entity %q in %s has no module; add `module <name>` at the top", e.Name, path)
			}
			fqn := e.FQN()
			if _, exists := result[fqn]; exists {
				return fmt.Errorf("duplicate entity %q in module %q (file: %s)", e.Name, e.Module, path)
			}
			result[fqn] = e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
