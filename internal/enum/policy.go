package enum

import (
	"context"
	"fmt"
	"strings"
)

// LookupFailureFunc получает исходный ключ, который не нашёлся.
// Возвращённый член (или nil) становится результатом поиска.
type LookupFailureFunc func(ctx context.Context, key any) (*Instance, error)

// MethodFunc: именованный обработчик промаха, объявленный на типе.
type MethodFunc func(ctx context.Context, t *Type, key any) (*Instance, error)

type policyKind int

const (
	policyNone policyKind = iota
	policyStrict
	policyStrictIDs
	policyStrictSymbols
	policyStrictLiterals
	policyMethod
	policyCallable
)

// Policy: поведение при промахе поиска по непустому ключу.
type Policy struct {
	kind   policyKind
	method string
	fn     LookupFailureFunc
}

var (
	EnforceNone           = Policy{kind: policyNone}
	EnforceStrict         = Policy{kind: policyStrict}
	EnforceStrictIDs      = Policy{kind: policyStrictIDs}
	EnforceStrictSymbols  = Policy{kind: policyStrictSymbols}
	EnforceStrictLiterals = Policy{kind: policyStrictLiterals}
)

// Method делегирует промах методу типа с именем name (см. Options.Methods).
func Method(name string) Policy {
	return Policy{kind: policyMethod, method: name}
}

// Callable вызывает fn напрямую с исходным ключом.
func Callable(fn LookupFailureFunc) Policy {
	if fn == nil {
		return EnforceNone
	}
	return Policy{kind: policyCallable, fn: fn}
}

// ParsePolicy разбирает имя политики из конфигурации.
// Неизвестное имя трактуется как имя метода типа.
func ParsePolicy(s string) Policy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "enforce_none":
		return EnforceNone
	case "strict", "enforce_strict":
		return EnforceStrict
	case "strict_ids", "enforce_strict_ids":
		return EnforceStrictIDs
	case "strict_symbols", "enforce_strict_symbols":
		return EnforceStrictSymbols
	case "strict_literals", "enforce_strict_literals":
		return EnforceStrictLiterals
	default:
		return Method(strings.TrimSpace(s))
	}
}

func (p Policy) String() string {
	switch p.kind {
	case policyStrict:
		return "enforce_strict"
	case policyStrictIDs:
		return "enforce_strict_ids"
	case policyStrictSymbols:
		return "enforce_strict_symbols"
	case policyStrictLiterals:
		return "enforce_strict_literals"
	case policyMethod:
		return "method:" + p.method
	case policyCallable:
		return "callable"
	default:
		return "enforce_none"
	}
}

// handle вызывается только для непустых ненайденных ключей.
func (p Policy) handle(ctx context.Context, t *Type, k any) (*Instance, error) {
	kind := classify(k).kind
	switch p.kind {
	case policyStrict:
		return nil, t.notFound(k)
	case policyStrictIDs:
		if kind == keyID {
			return nil, t.notFound(k)
		}
		return nil, nil
	case policyStrictSymbols:
		if kind == keySymbol {
			return nil, t.notFound(k)
		}
		return nil, nil
	case policyStrictLiterals:
		if IsLiteral(k) {
			return nil, t.notFound(k)
		}
		return nil, nil
	case policyMethod:
		m, ok := t.opts.Methods[p.method]
		if !ok {
			return nil, fmt.Errorf("%s: %w: %q", t.name, ErrUnknownMethod, p.method)
		}
		return m(ctx, t, k)
	case policyCallable:
		return p.fn(ctx, k)
	default:
		return nil, nil
	}
}
