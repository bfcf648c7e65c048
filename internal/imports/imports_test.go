package imports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *Collector)
		want  string
	}{
		{
			name:  "empty",
			setup: func(c *Collector) {},
			want:  "",
		},
		{
			name: "single module sorted names",
			setup: func(c *Collector) {
				c.Add("sqlalchemy", "Text")
				c.Add("sqlalchemy", "Table")
				c.Add("sqlalchemy", "Column")
				c.Add("sqlalchemy", "MetaData")
				c.Add("sqlalchemy", "Integer")
			},
			want: "from sqlalchemy import Column, Integer, MetaData, Table, Text",
		},
		{
			name: "groups",
			setup: func(c *Collector) {
				c.Add("sqlmodel", "SQLModel")
				c.Add("sqlalchemy", "Column")
				c.Add("typing", "Optional")
				c.Add("sqlmodel", "Field")
			},
			want: "from typing import Optional\n\nfrom sqlalchemy import Column\nfrom sqlmodel import Field, SQLModel",
		},
		{
			name: "future first and module imports before from imports",
			setup: func(c *Collector) {
				c.Add("sqlalchemy.orm", "registry")
				c.Add("dataclasses", "field")
				c.AddModule("datetime")
				c.RequireFuture()
				c.Add("dataclasses", "dataclass")
				c.RequireFuture()
				c.AddModule("decimal")
			},
			want: "from __future__ import annotations\n\n" +
				"import datetime\nimport decimal\nfrom dataclasses import dataclass, field\n\n" +
				"from sqlalchemy.orm import registry",
		},
		{
			name: "mixed case names sort bytewise",
			setup: func(c *Collector) {
				c.Add("sqlalchemy.orm", "mapped_column")
				c.Add("sqlalchemy.orm", "MappedAsDataclass")
				c.Add("sqlalchemy.orm", "Mapped")
				c.Add("sqlalchemy.orm", "DeclarativeBase")
			},
			want: "from sqlalchemy.orm import DeclarativeBase, Mapped, MappedAsDataclass, mapped_column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector()
			tt.setup(c)
			assert.Equal(t, tt.want, c.Render())
		})
	}
}

func TestIdempotent(t *testing.T) {
	a := NewCollector()
	a.AddSpecs(Spec{"sqlalchemy", "Integer"}, Spec{"sqlalchemy", "Integer"}, Spec{Module: "uuid"})
	b := NewCollector()
	b.AddModule("uuid")
	b.Add("sqlalchemy", "Integer")
	assert.Equal(t, b.Render(), a.Render())
	assert.True(t, a.Has("sqlalchemy", "Integer"))
	assert.False(t, a.Has("sqlalchemy", "Text"))
}

func TestNames(t *testing.T) {
	c := NewCollector()
	c.RequireFuture()
	c.Add("sqlalchemy", "Column")
	c.Add("sqlalchemy.dialects.postgresql", "JSONB")
	c.AddModule("datetime")
	assert.Equal(t, []string{"Column", "JSONB", "datetime"}, c.Names())
}
