package nanoql

import (
	"testing"
)

type testRecord struct {
	level, message, thread, date, time string
}

func (r *testRecord) GetLevel() string    { return r.level }
func (r *testRecord) GetMessage() string  { return r.message }
func (r *testRecord) GetThreadID() string { return r.thread }
func (r *testRecord) GetDate() string     { return r.date }
func (r *testRecord) GetTime() string     { return r.time }

func TestLexer(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenType
	}{
		{"level:error", []TokenType{TokenIdent, TokenColon, TokenIdent, TokenEOF}},
		{`message:"pool exhausted"`, []TokenType{TokenIdent, TokenColon, TokenString, TokenEOF}},
		{"msg~pool", []TokenType{TokenIdent, TokenTilde, TokenIdent, TokenEOF}},
		{"a AND b", []TokenType{TokenIdent, TokenAnd, TokenIdent, TokenEOF}},
		{"a or b", []TokenType{TokenIdent, TokenOr, TokenIdent, TokenEOF}},
		{"NOT a", []TokenType{TokenNot, TokenIdent, TokenEOF}},
		{"(a)", []TokenType{TokenLParen, TokenIdent, TokenRParen, TokenEOF}},
		{`thread!="main"`, []TokenType{TokenIdent, TokenNeq, TokenString, TokenEOF}},
		{"date:2025-08-21", []TokenType{TokenIdent, TokenColon, TokenIdent, TokenEOF}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lexer := NewLexer(tt.input)
			for i, expected := range tt.expected {
				tok := lexer.NextToken()
				if tok.Type != expected {
					t.Errorf("token %d: expected %v, got %v (%q)", i, expected, tok.Type, tok.Value)
				}
			}
		})
	}
}

func TestLexerEscapedString(t *testing.T) {
	tok := NewLexer(`"say \"hi\""`).NextToken()
	if tok.Type != TokenString || tok.Value != `say "hi"` {
		t.Errorf("got %v %q", tok.Type, tok.Value)
	}
}

func TestParseSimple(t *testing.T) {
	tests := []struct {
		input string
		want  MatchExpr
	}{
		{"level:ERROR", MatchExpr{Key: "level", Value: "ERROR", Op: OpEqual}},
		{`thread!="worker-1"`, MatchExpr{Key: "thread", Value: "worker-1", Op: OpNotEqual}},
		{"msg~timeout", MatchExpr{Key: "msg", Value: "timeout", Op: OpContains}},
		{`"connection reset"`, MatchExpr{Value: "connection reset", Op: OpContains}},
		{"timeout", MatchExpr{Value: "timeout", Op: OpContains}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			if m, ok := node.(MatchExpr); !ok || m != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, node, tt.want)
			}
		})
	}
}

func TestParseParentheses(t *testing.T) {
	node, err := Parse("msg~db AND (level:ERROR OR level:WARN)")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	bin, ok := node.(BinaryExpr)
	if !ok || bin.Op != "AND" {
		t.Fatalf("expected AND at root, got %+v", node)
	}
	if right, ok := bin.Right.(BinaryExpr); !ok || right.Op != "OR" {
		t.Errorf("expected OR on right, got %+v", bin.Right)
	}
}

func TestParseImplicitAnd(t *testing.T) {
	node, err := Parse("level:ERROR NOT thread:main")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	bin, ok := node.(BinaryExpr)
	if !ok || bin.Op != "AND" {
		t.Fatalf("expected implicit AND, got %+v", node)
	}
	if _, ok := bin.Right.(NotExpr); !ok {
		t.Errorf("expected NOT on right, got %+v", bin.Right)
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"(level:ERROR", "level:", "NOT", "a )", `time:14:01`} {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) should fail", input)
		}
	}
}

func TestMatch(t *testing.T) {
	row := &testRecord{
		level:   "ERROR",
		message: "Connection timeout while calling billing",
		thread:  "http-nio-8080-exec-3",
		date:    "2025-08-21",
		time:    "14:01:33.511",
	}

	tests := []struct {
		query    string
		expected bool
	}{
		{"level:ERROR", true},
		{"level:error", true},
		{"level:INFO", false},
		{"level!=DEBUG", true},
		{`"timeout"`, true},
		{"TIMEOUT", true},
		{`"success"`, false},
		{"exec-3", true},
		{"msg~billing AND level:ERROR", true},
		{"msg~billing AND level:INFO", false},
		{"level:INFO OR thread~exec", true},
		{"NOT level:DEBUG", true},
		{"NOT level:ERROR", false},
		{"date:2025-08-21", true},
		{`time~"14:01"`, true},
		{"unknown:value", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			node, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			if got := Match(node, row); got != tt.expected {
				t.Errorf("Match(%q) = %v, want %v", tt.query, got, tt.expected)
			}
		})
	}
}

func TestMatchNil(t *testing.T) {
	if !Match(nil, &testRecord{}) {
		t.Error("nil node should match everything")
	}
}
