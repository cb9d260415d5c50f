package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unclebandit/dialer-campaign-backend/internal/service"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		want     string
	}{
		{"no placeholders", "http://ivr/answer", map[string]string{"contact": "1"}, "http://ivr/answer"},
		{"known keys", "http://ivr/{contact}?c={campaign_id}", map[string]string{"contact": "5551", "campaign_id": "3"}, "http://ivr/5551?c=3"},
		{"repeated key", "{x}-{x}", map[string]string{"x": "a"}, "a-a"},
		{"unknown key left", "product={product}", map[string]string{"contact": "1"}, "product={product}"},
		{"nil data", "{contact}", nil, "{contact}"},
		{"value is not rescanned", "{a}/{b}", map[string]string{"a": "{b}", "b": "x"}, "{b}/x"},
		{"value is not rescanned either way", "{a}/{b}", map[string]string{"a": "x", "b": "{a}"}, "x/{a}"},
		{"nested braces", "{{x}}", map[string]string{"x": "a"}, "{a}"},
		{"unterminated", "id={x", map[string]string{"x": "a"}, "id={x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.RenderTemplate(tt.template, tt.data))
		})
	}
}
