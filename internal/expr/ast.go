package expr

type node interface{ pos() int }

type expr interface {
	node
	exprNode()
}

type stmt interface {
	node
	stmtNode()
}

type at struct{ line int }

func (a at) pos() int { return a.line }

type (
	nameExpr struct {
		at
		ident string
	}

	constExpr struct {
		at
		val Value
	}

	listExpr struct {
		at
		elts []expr
	}

	tupleExpr struct {
		at
		elts []expr
	}

	setExpr struct {
		at
		elts []expr
	}

	dictExpr struct {
		at
		keys []expr
		vals []expr
	}

	unaryExpr struct {
		at
		op string
		x  expr
	}

	binaryExpr struct {
		at
		op   string
		l, r expr
	}

	// boolExpr is a short-circuiting and/or.
	boolExpr struct {
		at
		op   string
		l, r expr
	}

	// compareExpr is a comparison chain: a < b <= c.
	compareExpr struct {
		at
		first expr
		ops   []string
		rest  []expr
	}

	condExpr struct {
		at
		cond, then, els expr
	}

	keywordArg struct {
		name string
		val  expr
	}

	callExpr struct {
		at
		fn     expr
		args   []expr
		kwargs []keywordArg
	}

	methodExpr struct {
		at
		recv   expr
		method string
		args   []expr
	}

	indexExpr struct {
		at
		x, index expr
	}

	sliceExpr struct {
		at
		x              expr
		lo, hi, stride expr
	}

	compClause struct {
		target expr
		iter   expr
		ifs    []expr
	}

	compKind int

	comprehension struct {
		at
		kind    compKind
		elt     expr
		key     expr
		clauses []compClause
	}
)

const (
	compList compKind = iota
	compSet
	compGen
	compDict
)

func (*nameExpr) exprNode()      {}
func (*constExpr) exprNode()     {}
func (*listExpr) exprNode()      {}
func (*tupleExpr) exprNode()     {}
func (*setExpr) exprNode()       {}
func (*dictExpr) exprNode()      {}
func (*unaryExpr) exprNode()     {}
func (*binaryExpr) exprNode()    {}
func (*boolExpr) exprNode()      {}
func (*compareExpr) exprNode()   {}
func (*condExpr) exprNode()      {}
func (*callExpr) exprNode()      {}
func (*methodExpr) exprNode()    {}
func (*indexExpr) exprNode()     {}
func (*sliceExpr) exprNode()     {}
func (*comprehension) exprNode() {}

type (
	assignStmt struct {
		at
		targets []expr
		value   expr
	}

	augAssignStmt struct {
		at
		target expr
		op     string
		value  expr
	}

	exprStmt struct {
		at
		x expr
	}

	ifStmt struct {
		at
		cond expr
		body []stmt
		els  []stmt
	}

	forStmt struct {
		at
		target expr
		iter   expr
		body   []stmt
	}

	breakStmt    struct{ at }
	continueStmt struct{ at }
	passStmt     struct{ at }
)

func (*assignStmt) stmtNode()    {}
func (*augAssignStmt) stmtNode() {}
func (*exprStmt) stmtNode()      {}
func (*ifStmt) stmtNode()        {}
func (*forStmt) stmtNode()       {}
func (*breakStmt) stmtNode()     {}
func (*continueStmt) stmtNode()  {}
func (*passStmt) stmtNode()      {}
