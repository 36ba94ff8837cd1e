package species

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/bearwatch/internal/errors"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		lat      float64
		wantName string
		wantType BearType
		wantRisk string
	}{
		{name: "sapporo", lat: 43.06, wantName: "北海道棕熊 (Higuma)", wantType: TypeBrown, wantRisk: "EXTREME (極高)"},
		{name: "hakodate", lat: 41.77, wantName: "北海道棕熊 (Higuma)", wantType: TypeBrown, wantRisk: "EXTREME (極高)"},
		{name: "on the boundary", lat: 41.2, wantName: "亞洲黑熊 (Tsukinowaguma)", wantType: TypeBlack, wantRisk: "HIGH (高)"},
		{name: "akita", lat: 39.72, wantName: "亞洲黑熊 (Tsukinowaguma)", wantType: TypeBlack, wantRisk: "HIGH (高)"},
		{name: "kyoto", lat: 35.01, wantName: "亞洲黑熊 (Tsukinowaguma)", wantType: TypeBlack, wantRisk: "HIGH (高)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			info := Lookup(tt.lat)
			assert.Equal(t, tt.wantName, info.Name)
			assert.Equal(t, tt.wantType, info.Type)
			assert.Equal(t, tt.wantRisk, info.RiskLevel)
			assert.Equal(t, SourceStatic, info.Source)
			assert.NotEmpty(t, info.Advice)
			assert.NotEmpty(t, info.Features)
		})
	}
}

type fakeGen struct {
	reply string
	err   error
	calls atomic.Int32
}

func (f *fakeGen) GenerateJSON(_ context.Context, _, _ string) (string, error) {
	f.calls.Add(1)
	return f.reply, f.err
}

func TestAdvisor(t *testing.T) {
	t.Parallel()

	t.Run("model answer is cached", func(t *testing.T) {
		t.Parallel()
		gen := &fakeGen{reply: "```json\n" + `{"name":"亞洲黑熊 (Tsukinowaguma)","scientificName":"Ursus thibetanus japonicus","type":"black","riskLevel":"HIGH (高)","features":"胸前白紋","advice":"配戴熊鈴"}` + "\n```"}
		a := NewAdvisor(gen, time.Hour)

		first := a.Advise(t.Context(), 39.72, 140.10)
		second := a.Advise(t.Context(), 39.74, 140.08)
		assert.Equal(t, SourceAI, first.Source)
		assert.Equal(t, TypeBlack, first.Type)
		assert.Equal(t, "配戴熊鈴", first.Advice)
		assert.Equal(t, first, second)
		assert.Equal(t, int32(1), gen.calls.Load())
	})

	t.Run("model error falls back", func(t *testing.T) {
		t.Parallel()
		gen := &fakeGen{err: errors.NewStd("quota exceeded")}
		a := NewAdvisor(gen, time.Hour)

		info := a.Advise(t.Context(), 43.06, 141.35)
		assert.Equal(t, Lookup(43.06), info)
		a.Advise(t.Context(), 43.06, 141.35)
		assert.Equal(t, int32(2), gen.calls.Load(), "failures are not cached")
	})

	t.Run("unreadable reply falls back", func(t *testing.T) {
		t.Parallel()
		gen := &fakeGen{reply: `{"name":"Panda","type":"GIANT","advice":"run"}`}
		a := NewAdvisor(gen, time.Hour)
		assert.Equal(t, Lookup(35.0), a.Advise(t.Context(), 35.0, 135.0))
	})

	t.Run("no generator", func(t *testing.T) {
		t.Parallel()
		a := NewAdvisor(nil, 0)
		assert.Equal(t, Lookup(42.0), a.Advise(t.Context(), 42.0, 141.0))
	})
}
