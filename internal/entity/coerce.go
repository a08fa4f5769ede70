package entity

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`) // YYYY-MM-DD

// coerceValue приводит значение примитивного поля к типу из схемы.
func coerceValue(typ string, v any) (any, error) {
	switch typ {
	case "string":
		return toStringStrict(v)
	case "int":
		return toIntStrict(v)
	case "float":
		return toFloatStrict(v)
	case "bool":
		return toBoolStrict(v)
	case "date":
		s, err := toStringStrict(v)
		if err != nil {
			return nil, err
		}
		if !dateRe.MatchString(s) {
			return nil, errors.New("must match YYYY-MM-DD")
		}
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return nil, errors.New("invalid date")
		}
		return s, nil
	case "datetime":
		s, err := toStringStrict(v)
		if err != nil {
			return nil, err
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return nil, errors.New("must be RFC3339 datetime")
		}
		return s, nil
	default:
		return v, nil
	}
}

func toStringStrict(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	// числа как строки не форматируем
	return "", errors.New("must be string")
}

func toIntStrict(v any) (int64, error) {
	switch t := v.(type) {
	case float64:
		// JSON числа приходят как float64
		if t != float64(int64(t)) {
			return 0, errors.New("must be integer")
		}
		return int64(t), nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, errors.New("must be integer")
		}
		return n, nil
	default:
		return 0, errors.New("must be integer")
	}
}

func toFloatStrict(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, errors.New("must be float")
		}
		return f, nil
	default:
		return 0, errors.New("must be float")
	}
}

func toBoolStrict(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "y", "on":
			return true, nil
		case "false", "0", "no", "n", "off":
			return false, nil
		}
	}
	return false, errors.New("must be boolean")
}
