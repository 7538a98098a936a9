package expr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string) (Value, error) {
	t.Helper()
	prog, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return prog.Run(context.Background(), nil, nil, DefaultLimits())
}

func mustRun(t *testing.T, src string) Value {
	t.Helper()
	v, err := run(t, src)
	require.NoError(t, err)
	return v
}

func TestExpressionSemantics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "true division", src: "result = 7 / 2", want: "3.5"},
		{name: "floor division", src: "result = -7 // 2", want: "-4"},
		{name: "modulo follows divisor", src: "result = -7 % 3", want: "2"},
		{name: "power", src: "result = 2 ** 10", want: "1024"},
		{name: "negative power", src: "result = 2 ** -1", want: "0.5"},
		{name: "right assoc power", src: "result = 2 ** 3 ** 2", want: "512"},
		{name: "precedence", src: "result = 1 + 2 * 3 - 4 / 2", want: "5.0"},
		{name: "chained comparison", src: "result = 1 < 2 < 3", want: "True"},
		{name: "chained comparison false", src: "result = 1 < 3 < 2", want: "False"},
		{name: "int float equality", src: "result = 1 == 1.0", want: "True"},
		{name: "substring", src: "result = 'bc' in 'abc'", want: "True"},
		{name: "not in list", src: "result = 'x' not in ['a', 'b']", want: "True"},
		{name: "subset", src: "result = {1, 2} <= {1, 2, 3}", want: "True"},
		{name: "proper superset", src: "result = {1, 2} > {1, 2}", want: "False"},
		{name: "set union", src: "result = {1} | {2}", want: "{1, 2}"},
		{name: "set intersection", src: "result = {1, 2, 3} & {2, 3, 4}", want: "{2, 3}"},
		{name: "set difference", src: "result = {1, 2, 3} - {2}", want: "{1, 3}"},
		{name: "list concat", src: "result = [1, 2] + [3]", want: "[1, 2, 3]"},
		{name: "list repeat", src: "result = [0] * 3", want: "[0, 0, 0]"},
		{name: "conditional expression", src: "result = 'a' if 2 > 1 else 'b'", want: `"a"`},
		{name: "or returns operand", src: "result = 0 or 'x'", want: `"x"`},
		{name: "and returns operand", src: "result = [] and 1", want: "[]"},
		{name: "not empty list", src: "result = not []", want: "True"},
		{name: "is none", src: "result = None is None", want: "True"},
		{name: "is not", src: "result = 1 is not None", want: "True"},
		{name: "numeric hash", src: "result = len({1, 1.0, True})", want: "1"},
		{name: "sorted", src: "result = sorted([3, 1, 2])", want: "[1, 2, 3]"},
		{name: "sorted reverse", src: "result = sorted([3, 1, 2], reverse=True)", want: "[3, 2, 1]"},
		{name: "round half even", src: "result = round(2.5)", want: "2"},
		{name: "round half even up", src: "result = round(3.5)", want: "4"},
		{name: "round digits", src: "result = round(1.2345, 2)", want: "1.23"},
		{name: "sum generator", src: "result = sum(x for x in range(5))", want: "10"},
		{name: "sum floats", src: "result = sum([0.5, 0.25])", want: "0.75"},
		{name: "list comprehension", src: "result = [x * x for x in range(4) if x % 2 == 0]", want: "[0, 4]"},
		{name: "nested comprehension", src: "result = [a + b for a in 'xy' for b in 'z']", want: `["xz", "yz"]`},
		{name: "set comprehension", src: "result = {x % 2 for x in range(10)}", want: "{0, 1}"},
		{name: "dict comprehension", src: "result = {k: v for k, v in [(1, 'a')]}", want: `{1: "a"}`},
		{name: "max", src: "result = max([1, 5, 3])", want: "5"},
		{name: "min varargs", src: "result = min(3, 1, 2)", want: "1"},
		{name: "max default", src: "result = max([], default=0)", want: "0"},
		{name: "abs", src: "result = abs(-3)", want: "3"},
		{name: "negative index", src: "result = 'abc'[-1]", want: `"c"`},
		{name: "reverse slice", src: "result = [1, 2, 3][::-1]", want: "[3, 2, 1]"},
		{name: "slice", src: "result = [1, 2, 3, 4][1:3]", want: "[2, 3]"},
		{name: "singleton tuple", src: "result = (1,)", want: "(1,)"},
		{name: "empty braces are dict", src: "result = {}", want: "{}"},
		{name: "empty set", src: "result = set()", want: "set()"},
		{name: "dict get default", src: "d = {'a': 1}\nresult = d.get('b', 7)", want: "7"},
		{name: "dict items", src: "d = {'a': 1}\nresult = d.items()", want: `[("a", 1)]`},
		{name: "string methods", src: "result = 'Hello'.lower().startswith('he')", want: "True"},
		{name: "adjacent strings", src: "result = 'a' 'b'", want: `"ab"`},
		{name: "unicode names and strings", src: "景点 = '故宫'\nresult = 景点 + '博物院'", want: `"故宫博物院"`},
		{name: "int overflow becomes float", src: "result = 2 ** 64 > 0", want: "True"},
		{name: "string repeat", src: "result = 'ab' * 2", want: `"abab"`},
		{name: "range membership", src: "result = 4 in range(0, 10, 2)", want: "True"},
		{name: "len of range", src: "result = len(range(3, 10))", want: "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mustRun(t, tt.src)
			assert.Equal(t, tt.want, Repr(v))
		})
	}
}

func TestStatements(t *testing.T) {
	t.Run("assignment forms", func(t *testing.T) {
		src := "a, b = 1, 2\nc = d = 3\n[e, f] = [4, 5]\nresult = a + b + c + d + e + f"
		assert.Equal(t, int64(18), mustRun(t, src))
	})

	t.Run("augmented assignment", func(t *testing.T) {
		src := "x = 10\nx += 5\nx -= 3\nx *= 2\nx /= 4\nresult = x"
		assert.Equal(t, 6.0, mustRun(t, src))
	})

	t.Run("augmented list extends in place", func(t *testing.T) {
		src := "a = [1]\nb = a\na += [2]\nresult = b"
		assert.Equal(t, "[1, 2]", Repr(mustRun(t, src)))
	})

	t.Run("subscript assignment", func(t *testing.T) {
		src := "d = {}\nd['k'] = 1\nd['k'] += 1\nl = [0, 0]\nl[-1] = 9\nresult = (d['k'], l)"
		assert.Equal(t, "(2, [0, 9])", Repr(mustRun(t, src)))
	})

	t.Run("if elif else", func(t *testing.T) {
		src := `
x = 7
if x < 5:
    result = 'low'
elif x < 10:
    result = 'mid'
else:
    result = 'high'
`
		assert.Equal(t, "mid", mustRun(t, src))
	})

	t.Run("break and continue", func(t *testing.T) {
		src := `
total = 0
for i in range(10):
    if i == 5:
        break
    if i % 2 == 0:
        continue
    total += i
result = total
`
		assert.Equal(t, int64(4), mustRun(t, src))
	})

	t.Run("tuple targets in for", func(t *testing.T) {
		src := `
total = 0
for k, v in {'a': 1, 'b': 2}.items():
    total += v
result = total
`
		assert.Equal(t, int64(3), mustRun(t, src))
	})

	t.Run("set and list methods", func(t *testing.T) {
		src := `
s = set()
s.add('train')
s.add('train')
l = []
l.append(1)
result = (len(s), len(l), s.issubset({'train', 'airplane'}), s.union(['x']))
`
		assert.Equal(t, `(1, 1, True, {"train", "x"})`, Repr(mustRun(t, src)))
	})

	t.Run("single line suite and semicolons", func(t *testing.T) {
		src := "a = 1; b = 2\nif a < b: result = b; pass"
		assert.Equal(t, int64(2), mustRun(t, src))
	})

	t.Run("line joining and comments", func(t *testing.T) {
		src := "# leading comment\nresult = (1 +\n          2) \\\n    + 3  # trailing"
		assert.Equal(t, int64(6), mustRun(t, src))
	})

	t.Run("triple quoted string", func(t *testing.T) {
		assert.Equal(t, "a\nb", mustRun(t, "result = \"\"\"a\nb\"\"\""))
	})

	t.Run("uniformly indented program", func(t *testing.T) {
		src := "\n    x = 2\n    result = x * 2\n"
		assert.Equal(t, int64(4), mustRun(t, src))
	})
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "import", src: "import os\nresult = 1"},
		{name: "from import", src: "from os import path"},
		{name: "def", src: "def f():\n    pass"},
		{name: "lambda", src: "result = lambda: 1"},
		{name: "while", src: "while True:\n    pass"},
		{name: "private attribute", src: "result = plan.__class__"},
		{name: "attribute read", src: "result = plan.items"},
		{name: "break outside loop", src: "break"},
		{name: "bad indentation", src: "if True:\n    x = 1\n  y = 2"},
		{name: "unexpected indent", src: "x = 1\n    y = 2"},
		{name: "unclosed bracket", src: "result = (1 +"},
		{name: "unterminated string", src: "result = 'abc"},
		{name: "walrus", src: "result = (x := 1)"},
		{name: "assign to literal", src: "1 = x"},
		{name: "star args", src: "result = max(*[1, 2])"},
		{name: "for else", src: "for x in []:\n    pass\nelse:\n    pass"},
		{name: "f string", src: "result = f'x'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src)
			require.Error(t, err)
			var se *SyntaxError
			assert.True(t, errors.As(err, &se), "want SyntaxError, got %v", err)
			assert.Positive(t, se.Line)
		})
	}
}

func TestSyntaxErrorPosition(t *testing.T) {
	_, err := Compile("x = 1\ny = = 2")
	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 2, se.Line)
	assert.Equal(t, 5, se.Col)
}

func TestRuntimeFailures(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{name: "unbound name", src: "result = undefined_thing", wantErr: ErrUnboundName},
		{name: "builtin outside allow list", src: "result = open('/etc/passwd')", wantErr: ErrUnboundName},
		{name: "dunder import", src: "result = __import__('os')", wantErr: ErrUnboundName},
		{name: "eval not reachable", src: "result = eval('1')", wantErr: ErrUnboundName},
		{name: "no result", src: "x = 1", wantErr: ErrNoResult},
		{name: "zero division", src: "result = 1 / 0", wantErr: ErrZeroDivision},
		{name: "zero floor division", src: "result = 1 // 0", wantErr: ErrZeroDivision},
		{name: "zero modulo", src: "result = 1.5 % 0", wantErr: ErrZeroDivision},
		{name: "type error", src: "result = 1 + 'a'", wantErr: ErrType},
		{name: "unhashable", src: "result = {[1]}", wantErr: ErrType},
		{name: "index out of range", src: "result = [1][3]", wantErr: ErrValue},
		{name: "missing key", src: "result = {}['x']", wantErr: ErrValue},
		{name: "empty max", src: "result = max([])", wantErr: ErrValue},
		{name: "unpack mismatch", src: "a, b = [1, 2, 3]\nresult = a", wantErr: ErrValue},
		{name: "huge range", src: "result = range(10 ** 9)", wantErr: ErrCollectionLimit},
		{name: "huge repeat", src: "result = [0] * (10 ** 9)", wantErr: ErrCollectionLimit},
		{name: "call non function", src: "x = 1\nresult = x()", wantErr: ErrType},
		{name: "keyword to builtin", src: "result = len([], key=1)", wantErr: ErrType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "want %v, got %v", tt.wantErr, err)
		})
	}
}

func TestRuntimeErrorCarriesLine(t *testing.T) {
	_, err := run(t, "x = 1\ny = 2\nresult = x / 0")
	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 3, re.Line)
}

func TestStepLimit(t *testing.T) {
	prog, err := Compile("x = 0\nfor i in range(1000):\n    x += 1\nresult = x")
	require.NoError(t, err)

	_, err = prog.Run(context.Background(), nil, nil, Limits{MaxSteps: 100})
	assert.True(t, errors.Is(err, ErrStepLimit))

	v, err := prog.Run(context.Background(), nil, nil, DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), v)
}

func TestCollectionLimit(t *testing.T) {
	prog, err := Compile("l = []\nfor i in range(50):\n    l.append(i)\nresult = len(l)")
	require.NoError(t, err)

	_, err = prog.Run(context.Background(), nil, nil, Limits{MaxCollection: 10})
	assert.True(t, errors.Is(err, ErrCollectionLimit))
}

func TestContextCancellation(t *testing.T) {
	prog, err := Compile("x = 0\nfor i in range(20000):\n    x += 1\nresult = x")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = prog.Run(ctx, nil, nil, DefaultLimits())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBindingsAndRegistry(t *testing.T) {
	reg, err := NewRegistry(map[string]Func{
		"double": func(_ context.Context, args []Value) (Value, error) {
			n, _ := args[0].(int64)
			return n * 2, nil
		},
		"names": func(_ context.Context, _ []Value) (Value, error) {
			return []string{"a", "b"}, nil
		},
		"explode": func(_ context.Context, _ []Value) (Value, error) {
			panic("native failure")
		},
		"fail": func(_ context.Context, _ []Value) (Value, error) {
			return nil, errors.New("lookup failed")
		},
	})
	require.NoError(t, err)

	runWith := func(src string) (Value, error) {
		prog, err := Compile(src)
		require.NoError(t, err)
		return prog.Run(context.Background(), reg, map[string]Value{"plan": int64(21)}, DefaultLimits())
	}

	t.Run("function and binding", func(t *testing.T) {
		v, err := runWith("result = double(plan)")
		require.NoError(t, err)
		assert.Equal(t, int64(42), v)
	})

	t.Run("go slices become lists", func(t *testing.T) {
		v, err := runWith("result = names() == ['a', 'b']")
		require.NoError(t, err)
		assert.Equal(t, true, v)
	})

	t.Run("local shadows binding", func(t *testing.T) {
		v, err := runWith("plan = 1\nresult = plan")
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
	})

	t.Run("native panic is contained", func(t *testing.T) {
		_, err := runWith("result = explode()")
		var re *RuntimeError
		assert.True(t, errors.As(err, &re))
	})

	t.Run("native error is wrapped", func(t *testing.T) {
		_, err := runWith("result = fail()")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fail(): lookup failed")
	})

	t.Run("keywords rejected for natives", func(t *testing.T) {
		_, err := runWith("result = double(x=1)")
		assert.True(t, errors.Is(err, ErrType))
	})
}

func TestProgramIsReusable(t *testing.T) {
	prog, err := Compile("s = set()\ns.add(plan)\nresult = len(s)")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		v, err := prog.Run(context.Background(), nil, map[string]Value{"plan": int64(i)}, DefaultLimits())
		require.NoError(t, err)
		assert.Equal(t, int64(1), v, "runs must not share state")
	}
	assert.Equal(t, SourceHash(prog.Source()), prog.Hash())
}
