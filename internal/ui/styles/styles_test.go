// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// THEME TESTS
// =============================================================================

func TestResolveDark(t *testing.T) {
	detected := func() bool { return true }
	notDetected := func() bool { return false }

	tests := []struct {
		mode   string
		detect func() bool
		want   bool
	}{
		{"dark", notDetected, true},
		{" Light ", detected, false},
		{"auto", detected, true},
		{"auto", notDetected, false},
		{"", notDetected, false},
		{"solarized", detected, true},
	}

	for _, tc := range tests {
		if got := ResolveDark(tc.mode, tc.detect); got != tc.want {
			t.Errorf("ResolveDark(%q) = %v, want %v", tc.mode, got, tc.want)
		}
	}
}

func TestNewTheme_ExplicitModes(t *testing.T) {
	dark := NewTheme(ModeDark)
	if !dark.IsDark || dark.MarkdownStyle() != "dark" {
		t.Errorf("dark theme: IsDark=%v style=%q", dark.IsDark, dark.MarkdownStyle())
	}

	light := NewTheme(ModeLight)
	if light.IsDark || light.MarkdownStyle() != "light" {
		t.Errorf("light theme: IsDark=%v style=%q", light.IsDark, light.MarkdownStyle())
	}
}

func TestThemeStylesRender(t *testing.T) {
	theme := NewTheme(ModeDark)

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", theme.Header},
		{"UserBubble", theme.UserBubble},
		{"AssistantBubble", theme.AssistantBubble},
		{"InputContainer", theme.InputContainer},
		{"StatusBar", theme.StatusBar},
		{"ErrorBox", theme.ErrorBox},
		{"CodeBlock", theme.CodeBlock},
		{"Panel", theme.Panel},
	}

	for _, s := range styles {
		if !strings.Contains(s.style.Render("test"), "test") {
			t.Errorf("%s style lost its content", s.name)
		}
	}
}

func TestGetLayoutMode(t *testing.T) {
	theme := NewTheme(ModeDark)

	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
	}
	for _, tc := range tests {
		theme.SetSize(tc.width, 24)
		if got := theme.GetLayoutMode(); got != tc.want {
			t.Errorf("width %d: GetLayoutMode() = %v, want %v", tc.width, got, tc.want)
		}
	}
}

// =============================================================================
// RENDER HELPER TESTS
// =============================================================================

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		width   int
		percent float64
		want    string
	}{
		{10, 0, "----------"},
		{10, 100, "##########"},
		{10, 50, "#####-----"},
		{10, 150, "##########"},
		{10, -5, "----------"},
		{0, 50, ""},
	}

	for _, tc := range tests {
		if got := RenderProgressBar(tc.width, tc.percent); got != tc.want {
			t.Errorf("RenderProgressBar(%d, %v) = %q, want %q", tc.width, tc.percent, got, tc.want)
		}
	}

	if got := RenderProgressBar(10, 55); len(got) != 10 {
		t.Errorf("partial bar length = %d, want 10", len(got))
	}
}

func TestStatusRenderersKeepIndicators(t *testing.T) {
	if !strings.Contains(RenderSuccess("saved"), "[OK] saved") {
		t.Error("RenderSuccess missing indicator")
	}
	if !strings.Contains(RenderError("failed"), "[X] failed") {
		t.Error("RenderError missing indicator")
	}
	if !strings.Contains(RenderWarning("slow"), "[!] slow") {
		t.Error("RenderWarning missing indicator")
	}
	if !strings.Contains(RenderInfo("hint"), "[i] hint") {
		t.Error("RenderInfo missing indicator")
	}
}
