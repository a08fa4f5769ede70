// Package reference: YAML-каталог справочных типов (reference/enums/*.yaml):
// объявления для enum.Registry и начальные строки таблиц.
package reference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"refenum/internal/enum"
	"refenum/internal/logger"
	"refenum/internal/naming"
)

// Parse читает одно описание; fallback: имя справочника, если name не задан.
func Parse(r io.Reader, fallback string) (EnumDirectory, error) {
	var d EnumDirectory
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return EnumDirectory{}, err
	}
	if d.Name == "" {
		d.Name = fallback
	}
	if err := validate(d); err != nil {
		return EnumDirectory{}, err
	}
	return d, nil
}

func validate(d EnumDirectory) error {
	if err := naming.Validator().Struct(d); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return fmt.Errorf("%s: %s failed on %q", d.Name, ve[0].Namespace(), ve[0].Tag())
		}
		return fmt.Errorf("%s: %w", d.Name, err)
	}
	seen := make(map[string]struct{}, len(d.Items))
	for _, it := range d.Items {
		if _, dup := seen[it.Name]; dup {
			return fmt.Errorf("%s: duplicate item %q", d.Name, it.Name)
		}
		seen[it.Name] = struct{}{}
	}
	return nil
}

// LoadEnumCatalog читает все enum-справочники из папки reference/enums/
func LoadEnumCatalog(dir string) (map[string]EnumDirectory, error) {
	result := make(map[string]EnumDirectory)
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]string)
	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.Name()))
		if file.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		// Имя справочника: из name или из имени файла
		d, err := Parse(bytes.NewReader(data), strings.TrimSuffix(file.Name(), filepath.Ext(file.Name())))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		k := naming.Key(d.Name)
		if prev, dup := keys[k]; dup {
			return nil, fmt.Errorf("%s: enum %q already declared in %s", path, d.Name, prev)
		}
		keys[k] = path
		result[d.Name] = d
	}
	return result, nil
}

func sortedNames(dirs map[string]EnumDirectory) []string {
	names := make([]string, 0, len(dirs))
	for n := range dirs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Define объявляет в реестре все типы каталога.
func Define(reg *enum.Registry, dirs map[string]EnumDirectory) error {
	for _, n := range sortedNames(dirs) {
		if err := reg.Define(n, dirs[n].Options()); err != nil {
			return err
		}
	}
	return nil
}

// Seed добавляет в таблицы строки каталога, которых там ещё нет (по имени).
// Вставка идёт в окне обновления типа, поэтому снапшот перечитывается.
func Seed(ctx context.Context, reg *enum.Registry, src enum.MutableSource, dirs map[string]EnumDirectory, log *logger.Logger) (int, error) {
	log = log.With(logger.CatEnum)
	total := 0
	for _, n := range sortedNames(dirs) {
		d := dirs[n]
		if len(d.Items) == 0 {
			continue
		}
		t, err := reg.Type(n)
		if err != nil {
			return total, err
		}
		inserted := 0
		err = t.Update(ctx, func(ctx context.Context, t *enum.Type) error {
			rows, err := src.LoadRows(ctx, enum.Query{Table: t.Table()})
			if err != nil {
				return err
			}
			have := make(map[string]struct{}, len(rows))
			for _, r := range rows {
				have[fmt.Sprint(r[t.NameColumn()])] = struct{}{}
			}
			for _, it := range d.Items {
				if _, ok := have[it.Name]; ok {
					continue
				}
				if _, err := src.InsertRow(ctx, t.Table(), it.Row(t.NameColumn())); err != nil {
					return err
				}
				inserted++
			}
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("seed %s: %w", n, err)
		}
		if inserted > 0 {
			log.Info(ctx, "enum seeded", "type", n, "rows", inserted)
		}
		total += inserted
	}
	return total, nil
}
