// Copyright 2024 The NoSE Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parse

import (
	"strconv"
	"strings"

	"github.com/nosehq/nose/model"
	"github.com/nosehq/nose/stmt"
)

// Parser consumes a token stream against a fixed Model, producing a
// stmt.Statement. It does not itself check data-model invariants beyond
// what is needed to resolve field references; Statement.Validate is the
// authority on the rest.
type Parser struct {
	m      *model.Model
	tokens []*Token
	pos    int
}

// Parse lexes and parses a single statement against m, per §6's
// grammar. Any lexical or grammatical problem, and any qualified field
// reference that does not resolve against m, is returned wrapped in
// stmt.ErrParseFailed, positioned at the offending byte offset.
func Parse(m *model.Model, input string) (stmt.Statement, error) {
	l := NewLexer(strings.NewReader(input))
	if err := l.Run(); err != nil {
		return nil, stmt.ErrParseFailed.New(len(input), err.Error())
	}
	var tokens []*Token
	for {
		tk := l.Next()
		if tk == nil {
			break
		}
		if tk.Type == ErrorToken {
			return nil, stmt.ErrParseFailed.New(tk.Pos, tk.Value)
		}
		tokens = append(tokens, tk)
	}
	p := &Parser{m: m, tokens: tokens}
	return p.parseStatement()
}

func (p *Parser) peek() *Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return p.tokens[p.pos]
}

func (p *Parser) next() *Token {
	tk := p.peek()
	if tk != nil {
		p.pos++
	}
	return tk
}

func (p *Parser) pos0() int {
	if tk := p.peek(); tk != nil {
		return tk.Pos
	}
	return 0
}

func (p *Parser) fail(msg string) error {
	return stmt.ErrParseFailed.New(p.pos0(), msg)
}

func (p *Parser) peekIs(typ TokenType) bool {
	tk := p.peek()
	return tk != nil && tk.Type == typ
}

func (p *Parser) peekIsKeyword(word string) bool {
	tk := p.peek()
	return tk != nil && tk.Type == KeywordToken && strings.EqualFold(tk.Value, word)
}

func (p *Parser) expectKeyword(word string) error {
	if !p.peekIsKeyword(word) {
		return p.fail("expected " + word)
	}
	p.next()
	return nil
}

func (p *Parser) expectIdentifier() (string, error) {
	tk := p.peek()
	if tk == nil || tk.Type != IdentifierToken {
		return "", p.fail("expected identifier")
	}
	p.next()
	return tk.Value, nil
}

func (p *Parser) expectEnd() error {
	for {
		tk := p.peek()
		if tk == nil || tk.Type == EOFToken {
			return nil
		}
		if tk.Type == SemicolonToken {
			p.next()
			continue
		}
		return p.fail("unexpected trailing input: " + tk.Value)
	}
}

func (p *Parser) parseStatement() (stmt.Statement, error) {
	tk := p.peek()
	if tk == nil || tk.Type != KeywordToken {
		return nil, p.fail("expected SELECT, UPDATE, INSERT or DELETE")
	}
	switch strings.ToUpper(tk.Value) {
	case "SELECT":
		return p.parseSelect()
	case "UPDATE":
		return p.parseUpdate()
	case "INSERT":
		return p.parseInsert()
	case "DELETE":
		return p.parseDelete()
	default:
		return nil, p.fail("unknown statement keyword: " + tk.Value)
	}
}

// parseDottedIdents reads ident(.ident)*.
func (p *Parser) parseDottedIdents() ([]string, error) {
	first, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	idents := []string{first}
	for p.peekIs(DotToken) {
		p.next()
		id, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		idents = append(idents, id)
	}
	return idents, nil
}

// parsePath reads a dotted entity path and validates it against m.
func (p *Parser) parsePath() (model.Path, error) {
	idents, err := p.parseDottedIdents()
	if err != nil {
		return model.Path{}, err
	}
	return model.NewPath(p.m, idents...)
}

// parseFieldRef reads a dotted field reference; the last identifier is
// the field name and the one before it is the entity. Any leading
// identifiers are accepted but unused, matching the grammar's
// `<ident>.<ident>(.<ident>)*` that allows a longer path prefix for
// readability.
func (p *Parser) parseFieldRef() (model.Field, error) {
	start := p.pos0()
	idents, err := p.parseDottedIdents()
	if err != nil {
		return model.Field{}, err
	}
	if len(idents) < 2 {
		return model.Field{}, p.fail("field reference needs an entity qualifier: " + idents[0])
	}
	f, err := p.resolveField(idents[len(idents)-2], idents[len(idents)-1])
	if err != nil {
		return model.Field{}, stmt.ErrParseFailed.New(start, err.Error())
	}
	return f, nil
}

func (p *Parser) resolveField(entity, name string) (model.Field, error) {
	e, err := p.m.Entity(entity)
	if err != nil {
		return model.Field{}, err
	}
	return e.Field(name)
}

func (p *Parser) parseFieldRefList() ([]model.Field, error) {
	var out []model.Field
	for {
		f, err := p.parseFieldRef()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
		if p.peekIs(CommaToken) {
			p.next()
			continue
		}
		break
	}
	return out, nil
}

// parseValue reads a literal or the '?' placeholder (nil).
func (p *Parser) parseValue() (interface{}, error) {
	tk := p.next()
	if tk == nil {
		return nil, p.fail("expected a value")
	}
	switch tk.Type {
	case QuestionToken:
		return nil, nil
	case IntToken:
		n, err := strconv.ParseInt(tk.Value, 10, 64)
		if err != nil {
			return nil, p.fail("malformed integer: " + tk.Value)
		}
		return n, nil
	case FloatToken:
		f, err := strconv.ParseFloat(tk.Value, 64)
		if err != nil {
			return nil, p.fail("malformed float: " + tk.Value)
		}
		return f, nil
	case StringToken:
		return unquote(tk.Value), nil
	case IdentifierToken:
		switch strings.ToLower(tk.Value) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return nil, p.fail("expected a literal or '?', got " + tk.Value)
}

func unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	inner := raw[1 : len(raw)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}

func operatorFromToken(tk *Token) (stmt.Operator, error) {
	switch tk.Value {
	case "=":
		return stmt.OpEq, nil
	case "!=":
		return stmt.OpNeq, nil
	case "<":
		return stmt.OpLt, nil
	case "<=":
		return stmt.OpLte, nil
	case ">":
		return stmt.OpGt, nil
	case ">=":
		return stmt.OpGte, nil
	default:
		return 0, stmt.ErrParseFailed.New(tk.Pos, "unknown operator: "+tk.Value)
	}
}

func (p *Parser) parseConditions() ([]stmt.Condition, error) {
	var out []stmt.Condition
	for {
		f, err := p.parseFieldRef()
		if err != nil {
			return nil, err
		}
		opTk := p.next()
		if opTk == nil || opTk.Type != OpToken {
			return nil, p.fail("expected a comparison operator")
		}
		op, err := operatorFromToken(opTk)
		if err != nil {
			return nil, err
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out = append(out, stmt.Condition{Field: f, Op: op, Value: val})
		if p.peekIsKeyword("AND") {
			p.next()
			continue
		}
		break
	}
	return out, nil
}

// parseSettings reads `<field> = (<literal>|'?')` pairs. A bare field
// name with no entity qualifier is resolved against target, matching
// the common `SET Username = ?` shorthand.
func (p *Parser) parseSettings(target string) ([]stmt.Setting, error) {
	var out []stmt.Setting
	for {
		idents, err := p.parseDottedIdents()
		if err != nil {
			return nil, err
		}
		var f model.Field
		if len(idents) == 1 {
			f, err = p.resolveField(target, idents[0])
		} else {
			f, err = p.resolveField(idents[len(idents)-2], idents[len(idents)-1])
		}
		if err != nil {
			return nil, err
		}
		eqTk := p.next()
		if eqTk == nil || eqTk.Type != OpToken || eqTk.Value != "=" {
			return nil, p.fail("expected '=' in setting")
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out = append(out, stmt.Setting{Field: f, Value: val})
		if p.peekIs(CommaToken) {
			p.next()
			continue
		}
		break
	}
	return out, nil
}

func (p *Parser) parseSelect() (stmt.Statement, error) {
	p.next() // SELECT

	var fields []model.Field
	star := false
	if p.peekIs(StarToken) {
		p.next()
		star = true
	} else {
		fs, err := p.parseFieldRefList()
		if err != nil {
			return nil, err
		}
		fields = fs
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}

	if star {
		e, err := p.m.Entity(path.Last())
		if err != nil {
			return nil, err
		}
		fields = append([]model.Field(nil), e.Fields()...)
	}

	q := stmt.Query{Select: fields, Path: path}

	if p.peekIsKeyword("WHERE") {
		p.next()
		conds, err := p.parseConditions()
		if err != nil {
			return nil, err
		}
		q.Conditions = conds
	}
	if p.peekIsKeyword("ORDER") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		fs, err := p.parseFieldRefList()
		if err != nil {
			return nil, err
		}
		q.OrderBy = fs
	}
	if p.peekIsKeyword("LIMIT") {
		p.next()
		tk := p.next()
		if tk == nil || tk.Type != IntToken {
			return nil, p.fail("expected an integer after LIMIT")
		}
		n, err := strconv.Atoi(tk.Value)
		if err != nil {
			return nil, p.fail("malformed LIMIT: " + tk.Value)
		}
		q.Limit = &n
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return q, nil
}

func (p *Parser) parseUpdate() (stmt.Statement, error) {
	p.next() // UPDATE
	target, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	u := stmt.Update{Target: target}

	// A statement with no explicit FROM still needs a Path whenever it
	// carries WHERE conditions (Update.Validate rejects conditions with
	// no path); default to the single-entity path over target, which
	// covers the common "UPDATE T SET ... WHERE T.f = ?" shorthand.
	if p.peekIsKeyword("FROM") {
		p.next()
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		u.Path = path
	} else {
		path, err := model.NewPath(p.m, target)
		if err != nil {
			return nil, err
		}
		u.Path = path
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	settings, err := p.parseSettings(target)
	if err != nil {
		return nil, err
	}
	u.Settings = settings

	if p.peekIsKeyword("WHERE") {
		p.next()
		conds, err := p.parseConditions()
		if err != nil {
			return nil, err
		}
		u.Conditions = conds
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return u, nil
}

func (p *Parser) parseInsert() (stmt.Statement, error) {
	p.next() // INSERT
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	target, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	settings, err := p.parseSettings(target)
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return stmt.Insert{Target: target, Settings: settings}, nil
}

func (p *Parser) parseDelete() (stmt.Statement, error) {
	p.next() // DELETE
	target, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	d := stmt.Delete{Target: target}

	if p.peekIsKeyword("FROM") {
		p.next()
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		d.Path = path
	} else {
		path, err := model.NewPath(p.m, target)
		if err != nil {
			return nil, err
		}
		d.Path = path
	}
	if p.peekIsKeyword("WHERE") {
		p.next()
		conds, err := p.parseConditions()
		if err != nil {
			return nil, err
		}
		d.Conditions = conds
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return d, nil
}
