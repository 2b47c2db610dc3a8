package dub

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	type test struct {
		input string
		want  []Command
	}
	tests := []test{
		{
			input: "play",
			want:  []Command{{Name: "play"}},
		},
		{
			input: "tone 0 level -6.5",
			want: []Command{{
				Name: "tone",
				Args: []Node{Int(0), Identifier("level"), Float(-6.5)},
			}},
		},
		{
			input: "seq 1 '1:4 60",
			want: []Command{{
				Name: "seq",
				Args: []Node{
					Int(1),
					StepExpr{matcher: rangeMatch{start: 1, end: 4}},
					Int(60),
				},
			}},
		},
		{
			input: "steps 0 '1,5,9,13",
			want: []Command{{
				Name: "steps",
				Args: []Node{
					Int(0),
					StepExpr{matcher: listMatch{1, 5, 9, 13}},
				},
			}},
		},
		{
			input: "steps 0 '*/2",
			want: []Command{{
				Name: "steps",
				Args: []Node{
					Int(0),
					StepExpr{matcher: matchAll, stride: 2},
				},
			}},
		},
		{
			input: "seq 2 '3",
			want: []Command{{
				Name: "seq",
				Args: []Node{Int(2), StepExpr{matcher: listMatch{3}}},
			}},
		},
		{
			input: `load 0 "kick.wav"`,
			want: []Command{{
				Name: "load",
				Args: []Node{Int(0), String("kick.wav")},
			}},
		},
		{
			input: `load 0 ""`,
			want: []Command{{
				Name: "load",
				Args: []Node{Int(0), String("")},
			}},
		},
		{
			input: "mute 0; unmute 1",
			want: []Command{
				{Name: "mute", Args: []Node{Int(0)}},
				{Name: "unmute", Args: []Node{Int(1)}},
			},
		},
		{
			input: "lock engines.0.rhythm",
			want: []Command{{
				Name: "lock",
				Args: []Node{Identifier("engines.0.rhythm")},
			}},
		},
	}
	for _, test := range tests {
		t.Log(test.input)
		got, err := Parse(test.input)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(test.want, got) {
			t.Errorf("\nwant: %+v\ngot:  %+v", test.want, got)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"1 not a command",
		"seq 0 'x",
		"steps 0 '1:",
		"steps 0 '*/0",
	} {
		if _, err := Parse(input); err == nil {
			t.Errorf("expected parse error for %q", input)
		}
	}
}

func TestStepExprEval(t *testing.T) {
	type test struct {
		input string
		steps int
		want  []int
	}
	tests := []test{
		{"'*", 8, []int{0, 1, 2, 3, 4, 5, 6, 7}},
		{"'1:4", 16, []int{0, 1, 2, 3}},
		{"'1,5,9,13", 16, []int{0, 4, 8, 12}},
		{"'*/2", 8, []int{0, 2, 4, 6}},
		{"'1:8/4", 16, []int{0, 4}},
		{"'9:16", 8, nil},
		{"'3", 8, []int{2}},
	}
	for _, test := range tests {
		t.Log(test.input)
		cmds, err := Parse("x " + test.input)
		if err != nil {
			t.Fatal(err)
		}
		expr := cmds[0].Args[0].(StepExpr)
		got := expr.Eval(test.steps)
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("Eval(%d) = %v, want %v", test.steps, got, test.want)
		}
	}
}
