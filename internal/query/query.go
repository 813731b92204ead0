// Package query builds parameterized SELECT statements from a list of
// predicates. Placeholders are rendered as $1..$n, which both lib/pq and
// modernc.org/sqlite accept.
package query

import (
	"fmt"
	"strings"
)

type Op string

const (
	Eq   Op = "="
	Gte  Op = ">="
	Lte  Op = "<="
	Like Op = "LIKE"
)

// Predicate is a single "column op value" condition. Column may be any SQL
// expression, e.g. an aggregate when used in HAVING.
type Predicate struct {
	Column string
	Op     Op
	Value  any
}

type Builder struct {
	base    string
	where   []Predicate
	groupBy []string
	having  []Predicate
	orderBy []string
	limit   int
}

// Select starts a statement from base, which holds the SELECT list and the
// FROM/JOIN clauses and nothing after them.
func Select(base string) *Builder {
	return &Builder{base: strings.TrimSpace(base)}
}

func (b *Builder) Where(column string, op Op, value any) *Builder {
	b.where = append(b.where, Predicate{Column: column, Op: op, Value: value})
	return b
}

// Contains adds a case-sensitive substring match on column. LIKE
// metacharacters in s are matched literally.
func (b *Builder) Contains(column, s string) *Builder {
	return b.Where(column, Like, ContainsPattern(s))
}

func (b *Builder) GroupBy(columns ...string) *Builder {
	b.groupBy = append(b.groupBy, columns...)
	return b
}

func (b *Builder) Having(expr string, op Op, value any) *Builder {
	b.having = append(b.having, Predicate{Column: expr, Op: op, Value: value})
	return b
}

func (b *Builder) OrderBy(columns ...string) *Builder {
	b.orderBy = append(b.orderBy, columns...)
	return b
}

// Limit caps the number of rows. n <= 0 leaves the statement unbounded.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// SQL renders the statement and its arguments in placeholder order.
func (b *Builder) SQL() (string, []any) {
	var sb strings.Builder
	var args []any

	sb.WriteString(b.base)
	writePredicates(&sb, "WHERE", b.where, &args)
	if len(b.groupBy) > 0 {
		sb.WriteString("\nGROUP BY ")
		sb.WriteString(strings.Join(b.groupBy, ", "))
	}
	writePredicates(&sb, "HAVING", b.having, &args)
	if len(b.orderBy) > 0 {
		sb.WriteString("\nORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		args = append(args, b.limit)
		fmt.Fprintf(&sb, "\nLIMIT $%d", len(args))
	}
	return sb.String(), args
}

// writePredicates emits keyword once, then joins the predicates with AND.
func writePredicates(sb *strings.Builder, keyword string, preds []Predicate, args *[]any) {
	for i, p := range preds {
		if i == 0 {
			sb.WriteString("\n" + keyword + " ")
		} else {
			sb.WriteString(" AND ")
		}
		*args = append(*args, p.Value)
		fmt.Fprintf(sb, "%s %s $%d", p.Column, p.Op, len(*args))
		if p.Op == Like {
			sb.WriteString(` ESCAPE '\'`)
		}
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern returns a LIKE pattern matching any string that contains s.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
