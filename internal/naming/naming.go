// Package naming: имена сущностей, таблиц и SQL-идентификаторов.
package naming

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
	orderRe = regexp.MustCompile(`(?i)^\s*[A-Za-z_][A-Za-z0-9_]*(\s+(ASC|DESC))?(\s*,\s*[A-Za-z_][A-Za-z0-9_]*(\s+(ASC|DESC))?)*\s*$`)
)

// IsIdent: имя колонки/таблицы, допустимо "schema.table".
func IsIdent(s string) bool { return identRe.MatchString(s) }

// IsOrder: список "col [ASC|DESC], ...".
func IsOrder(s string) bool { return orderRe.MatchString(s) }

// Key: ключ для сравнения имён без учёта регистра и подчёркиваний:
// "booking_status", "BookingStatus" и "booking-status" совпадают.
func Key(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Snake переводит CamelCase в snake_case: BookingStatus → booking_status.
func Snake(s string) string {
	var b strings.Builder
	runes := []rune(strings.TrimSpace(s))
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Plural: элементарная плюрализация (status → statuses, type → types)
// при желании затем подключим инфлектор
func Plural(s string) string {
	l := strings.ToLower(s)
	switch {
	case strings.HasSuffix(l, "ss"), strings.HasSuffix(l, "us"),
		strings.HasSuffix(l, "x"), strings.HasSuffix(l, "ch"), strings.HasSuffix(l, "sh"):
		return s + "es"
	case strings.HasSuffix(l, "s"):
		return s
	case strings.HasSuffix(l, "y") && len(l) > 1 && !strings.ContainsRune("aeiou", rune(l[len(l)-2])):
		return s[:len(s)-1] + "ies"
	default:
		return s + "s"
	}
}

// TableName: имя таблицы по умолчанию для типа: BookingStatus → booking_statuses.
func TableName(typeName string) string {
	return Plural(Snake(typeName))
}
