package services

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyValue_Amount(t *testing.T) {
	tests := []struct {
		name  string
		units int64
		nano  int32
		want  string
	}{
		{name: "units and half", units: 10, nano: 500_000_000, want: "10.5"},
		{name: "quarter", units: 7, nano: 250_000_000, want: "7.25"},
		{name: "whole units only", units: 120, nano: 0, want: "120"},
		{name: "nano only", units: 0, nano: 10_000_000, want: "0.01"},
		{name: "rounds sub-cent nano", units: 3, nano: 333_333_333, want: "3.33"},
		{name: "rounds half up", units: 1, nano: 555_000_000, want: "1.56"},
		{name: "negative units positive nano", units: -1, nano: 500_000_000, want: "-0.5"},
		{name: "negative units negative nano", units: -2, nano: -750_000_000, want: "-2.75"},
		{name: "zero", units: 0, nano: 0, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := decimal.NewFromString(tt.want)
			if err != nil {
				t.Fatalf("bad want value %q: %v", tt.want, err)
			}
			got := MoneyValue{Units: tt.units, Nano: tt.nano}.Amount()
			if !got.Equal(want) {
				t.Errorf("MoneyValue{%d, %d}.Amount() = %v, want %v", tt.units, tt.nano, got, want)
			}
		})
	}
}
