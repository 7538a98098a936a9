package testutils

import "github.com/ahrav/go-tripcheck/internal/expr"

// AdversarialProgram is a program that must never run to completion in the
// sandbox. WantErr is the error the run must wrap, or nil when any error
// will do (typically a syntax error).
type AdversarialProgram struct {
	Name    string
	Source  string
	WantErr error
}

// AdversarialPrograms tries to reach host facilities or exhaust resources.
// Every entry must fail under expr.DefaultLimits.
var AdversarialPrograms = []AdversarialProgram{
	{Name: "import statement", Source: "import os\nresult = True"},
	{Name: "dunder import", Source: "result = __import__('os')"},
	{Name: "open file", Source: "result = open('/etc/passwd')", WantErr: expr.ErrUnboundName},
	{Name: "eval", Source: "result = eval('1 + 1')", WantErr: expr.ErrUnboundName},
	{Name: "exec", Source: "exec('result = True')", WantErr: expr.ErrUnboundName},
	{Name: "globals", Source: "result = globals()", WantErr: expr.ErrUnboundName},
	{Name: "dunder attribute", Source: "result = plan.__class__"},
	{Name: "private method", Source: "result = [].__len__()"},
	{Name: "lambda", Source: "f = lambda: True\nresult = f()"},
	{Name: "huge range", Source: "result = len(range(10000000000))", WantErr: expr.ErrCollectionLimit},
	{Name: "list bomb", Source: "result = [0] * 10000000", WantErr: expr.ErrCollectionLimit},
	{Name: "string bomb", Source: "result = 'a' * 100000000", WantErr: expr.ErrCollectionLimit},
	{
		Name: "busy loop",
		Source: `x = 0
for i in range(100000):
    for j in range(100000):
        x = x + 1
result = x`,
		WantErr: expr.ErrStepLimit,
	},
	{
		Name:    "self-referential equality",
		Source:  selfReferentialLists + "result = a == b",
		WantErr: expr.ErrDepthLimit,
	},
	{
		Name:    "self-referential sort",
		Source:  selfReferentialLists + "result = len(sorted([a, b])) == 2",
		WantErr: expr.ErrDepthLimit,
	},
	{
		Name:    "self-referential membership",
		Source:  selfReferentialLists + "result = a in [b]",
		WantErr: expr.ErrDepthLimit,
	},
	{
		Name: "deeply nested tuple",
		Source: `t = ()
for i in range(5000):
    t = (t,)
result = len({t}) == 1`,
		WantErr: expr.ErrDepthLimit,
	},
	{
		Name: "repeated linear scans",
		Source: `big = list(range(90000))
n = 0
for i in range(3000):
    if -1 in big:
        n += 1
result = n == 0`,
		WantErr: expr.ErrStepLimit,
	},
	{
		Name: "repeated sorting",
		Source: `big = list(range(90000))
for i in range(3000):
    s = sorted(big)
result = len(s) > 0`,
		WantErr: expr.ErrStepLimit,
	},
	{
		Name: "repeated string copies",
		Source: `s = 'a' * 500000
for i in range(100000):
    t = s + s
result = len(t) > 0`,
		WantErr: expr.ErrStepLimit,
	},
}

// selfReferentialLists binds a and b to two distinct lists that each
// contain themselves.
const selfReferentialLists = "a = []\na.append(a)\nb = []\nb.append(b)\n"

// SelfReferentialResult leaves a list that contains itself in result.
const SelfReferentialResult = "x = []\nx.append(x)\nresult = x"
