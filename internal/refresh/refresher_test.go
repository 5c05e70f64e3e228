// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package refresh

import "testing"

func TestStartDisabledWithoutSpec(t *testing.T) {
	r := New("", nil, nil, nil)
	if err := r.Start(); err != nil {
		t.Fatalf("Start with empty spec should be a no-op, got %v", err)
	}
	r.Stop()
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	r := New("not a cron spec", nil, nil, nil)
	if err := r.Start(); err == nil {
		t.Fatal("invalid cron spec should fail")
	}
}
