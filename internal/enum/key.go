package enum

import "math"

// Symbol: символьное имя члена справочника. Ищется так же, как строка,
// но strict_symbols / strict_literals политики отличают его от строки.
type Symbol string

type keyKind int

const (
	keyInvalid keyKind = iota
	keyNil
	keyID
	keyString
	keySymbol
	keyInstance
)

// key: нормализованный ключ поиска.
type key struct {
	kind keyKind
	id   int64
	name string
	inst *Instance
}

// classify раскладывает ключ по видам: integer → id, string/Symbol → name,
// *Instance → как есть, nil → nil. Всё прочее: keyInvalid.
func classify(k any) key {
	switch v := k.(type) {
	case nil:
		return key{kind: keyNil}
	case *Instance:
		if v == nil {
			return key{kind: keyNil}
		}
		return key{kind: keyInstance, inst: v, id: v.id, name: v.name}
	case string:
		return key{kind: keyString, name: v}
	case Symbol:
		return key{kind: keySymbol, name: string(v)}
	case int:
		return key{kind: keyID, id: int64(v)}
	case int8:
		return key{kind: keyID, id: int64(v)}
	case int16:
		return key{kind: keyID, id: int64(v)}
	case int32:
		return key{kind: keyID, id: int64(v)}
	case int64:
		return key{kind: keyID, id: v}
	case uint:
		return uintKey(uint64(v))
	case uint8:
		return key{kind: keyID, id: int64(v)}
	case uint16:
		return key{kind: keyID, id: int64(v)}
	case uint32:
		return key{kind: keyID, id: int64(v)}
	case uint64:
		return uintKey(v)
	default:
		return key{kind: keyInvalid}
	}
}

func uintKey(v uint64) key {
	if v > math.MaxInt64 {
		// такого id в справочнике быть не может, но ключ: целое
		return key{kind: keyID, id: -1}
	}
	return key{kind: keyID, id: int64(v)}
}

// IsLiteral сообщает, является ли ключ целым или Symbol.
func IsLiteral(k any) bool {
	kind := classify(k).kind
	return kind == keyID || kind == keySymbol
}
