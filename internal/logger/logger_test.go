package logger

import "testing"

func TestScrub(t *testing.T) {
	tests := []struct {
		name string
		in   []interface{}
		want []interface{}
	}{
		{
			name: "plain values pass through",
			in:   []interface{}{"child_id", 7, "task_id", 12},
			want: []interface{}{"child_id", 7, "task_id", 12},
		},
		{
			name: "password is redacted",
			in:   []interface{}{"username", "sam", "password", "hunter2"},
			want: []interface{}{"username", "sam", "password", redacted},
		},
		{
			name: "token keys are case insensitive",
			in:   []interface{}{"Access_Token", "abc"},
			want: []interface{}{"Access_Token", redacted},
		},
		{
			name: "recipient email is redacted",
			in:   []interface{}{"recipient_email", "a@b.c"},
			want: []interface{}{"recipient_email", redacted},
		},
		{
			name: "dangling key kept",
			in:   []interface{}{"child_id", 1, "orphan"},
			want: []interface{}{"child_id", 1, "orphan"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scrub(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("scrub() len = %d, want %d (%v)", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("scrub()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNopLogger(t *testing.T) {
	l := Nop()
	l.Info("ignored", "password", "x")
	l.With("child_id", 1).Warn("ignored")
}
