package template

import (
	"fmt"
	"strings"

	"github.com/shahbajlive/templar/internal/model"
)

// Condition is a parsed per-task inclusion expression. The grammar is a
// small boolean language:
//
//	expr   := or
//	or     := and ("||" and)*
//	and    := not ("&&" not)*
//	not    := "!" not | "(" expr ")" | atom
//	atom   := "tag:" NAME | FIELD "=" VALUE
//
// Supported fields: type (the story's work-item type). Atoms match
// case-insensitively.
type Condition struct {
	root condNode
	src  string
}

// String returns the original expression text.
func (c *Condition) String() string { return c.src }

// EvalContext is what an expression is evaluated against.
type EvalContext struct {
	Tags []string
	Type string
}

// ContextFor builds an evaluation context from a story.
func ContextFor(story model.WorkItem) EvalContext {
	return EvalContext{Tags: story.Tags, Type: story.Type}
}

// Eval reports whether the condition holds in the given context.
func (c *Condition) Eval(ctx EvalContext) bool {
	return c.root.eval(ctx)
}

// ParseCondition parses an inclusion expression. An empty expression is
// invalid; callers treat an absent condition as "always include".
func ParseCondition(src string) (*Condition, error) {
	p := &condParser{tokens: tokenizeCondition(src)}
	if len(p.tokens) == 0 {
		return nil, fmt.Errorf("empty condition")
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("condition %q: %w", src, err)
	}
	if p.pos != len(p.tokens) {
		return nil, fmt.Errorf("condition %q: unexpected %q", src, p.tokens[p.pos])
	}
	return &Condition{root: root, src: src}, nil
}

type condNode interface {
	eval(ctx EvalContext) bool
}

type orNode struct{ left, right condNode }

func (n orNode) eval(ctx EvalContext) bool { return n.left.eval(ctx) || n.right.eval(ctx) }

type andNode struct{ left, right condNode }

func (n andNode) eval(ctx EvalContext) bool { return n.left.eval(ctx) && n.right.eval(ctx) }

type notNode struct{ inner condNode }

func (n notNode) eval(ctx EvalContext) bool { return !n.inner.eval(ctx) }

type tagNode struct{ tag string }

func (n tagNode) eval(ctx EvalContext) bool {
	for _, t := range ctx.Tags {
		if strings.EqualFold(t, n.tag) {
			return true
		}
	}
	return false
}

type fieldNode struct{ field, value string }

func (n fieldNode) eval(ctx EvalContext) bool {
	switch n.field {
	case "type":
		return strings.EqualFold(ctx.Type, n.value)
	default:
		return false
	}
}

// tokenizeCondition splits an expression into operator and atom tokens.
func tokenizeCondition(src string) []string {
	var tokens []string
	i := 0
	for i < len(src) {
		switch {
		case src[i] == ' ' || src[i] == '\t':
			i++
		case src[i] == '(' || src[i] == ')' || src[i] == '!':
			tokens = append(tokens, string(src[i]))
			i++
		case strings.HasPrefix(src[i:], "&&") || strings.HasPrefix(src[i:], "||"):
			tokens = append(tokens, src[i:i+2])
			i += 2
		default:
			j := i
			for j < len(src) && !strings.ContainsRune(" \t()!&|", rune(src[j])) {
				j++
			}
			tokens = append(tokens, src[i:j])
			i = j
		}
	}
	return tokens
}

type condParser struct {
	tokens []string
	pos    int
}

func (p *condParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *condParser) parseOr() (condNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek() == "||" {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func (p *condParser) parseAnd() (condNode, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek() == "&&" {
		p.pos++
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func (p *condParser) parseNot() (condNode, error) {
	switch p.peek() {
	case "!":
		p.pos++
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	case "(":
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek() != ")" {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	case "":
		return nil, fmt.Errorf("unexpected end of expression")
	default:
		return p.parseAtom()
	}
}

func (p *condParser) parseAtom() (condNode, error) {
	tok := p.tokens[p.pos]
	p.pos++

	if tag, ok := strings.CutPrefix(tok, "tag:"); ok {
		if tag == "" {
			return nil, fmt.Errorf("tag atom with empty name")
		}
		return tagNode{tag: strings.ToLower(tag)}, nil
	}

	if field, value, ok := strings.Cut(tok, "="); ok {
		field = strings.ToLower(field)
		if field != "type" {
			return nil, fmt.Errorf("unknown field %q", field)
		}
		if value == "" {
			return nil, fmt.Errorf("field atom %q with empty value", field)
		}
		return fieldNode{field: field, value: value}, nil
	}

	return nil, fmt.Errorf("unrecognized atom %q", tok)
}

// Applies reports whether a task should be instantiated for a story: a
// task without a condition always applies, one with an unparsable
// condition never does (validation should have caught it earlier).
func Applies(task model.TaskDefinition, story model.WorkItem) bool {
	if task.Condition == "" {
		return true
	}
	cond, err := ParseCondition(task.Condition)
	if err != nil {
		return false
	}
	return cond.Eval(ContextFor(story))
}
