package bytecode

// @generated from opcodes.go

//go:generate go run ../../scripts/gen_opnames.go -- opcodes.go opnames.go

var opNames = [256]string{
	Drop:              "DROP",
	Dup:               "DUP",
	Over:              "OVER",
	Swap:              "SWAP",
	String:            "STRING",
	Int:               "INT",
	PushFalse:         "PUSHFALSE",
	PushTrue:          "PUSHTRUE",
	PushNull:          "PUSHNULL",
	Jump:              "JUMP",
	JumpOnTrue:        "JUMPONTRUE",
	JumpOnFalse:       "JUMPONFALSE",
	And:               "AND",
	Or:                "OR",
	Not:               "NOT",
	Equal:             "EQUAL",
	IsPrefix:          "ISPREFIX",
	IsSuffix:          "ISSUFFIX",
	IsSubstring:       "ISSUBSTRING",
	EqualCL:           "EQUALCL",
	IsPrefixCL:        "ISPREFIXCL",
	IsSuffixCL:        "ISSUFFIXCL",
	IsSubstringCL:     "ISSUBSTRINGCL",
	HasPrefix:         "HASPREFIX",
	HasSuffix:         "HASSUFFIX",
	In:                "IN",
	HasPrefixCL:       "HASPREFIXCL",
	HasSuffixCL:       "HASSUFFIXCL",
	InCL:              "INCL",
	GetCase:           "GETCASE",
	SetCase:           "SETCASE",
	FetchVar:          "FETCHVAR",
	SetVar:            "SETVAR",
	FetchChunk:        "FETCHCHUNK",
	SetChunk:          "SETCHUNK",
	SourceClip:        "SOURCECLIP",
	TargetClip:        "TARGETCLIP",
	ReferenceClip:     "REFERENCECLIP",
	OrderedClip:       "ORDEREDCLIP",
	SetClip:           "SETCLIP",
	Chunk:             "CHUNK",
	AppendChild:       "APPENDCHILD",
	AppendSurface:     "APPENDSURFACE",
	AppendAllChildren: "APPENDALLCHILDREN",
	AppendAllInput:    "APPENDALLINPUT",
	PushInput:         "PUSHINPUT",
	AppendSurfaceSL:   "APPENDSURFACESL",
	AppendSurfaceRef:  "APPENDSURFACEREF",
	Output:            "OUTPUT",
	Blank:             "BLANK",
	OutputAll:         "OUTPUTALL",
	Conjoin:           "CONJOIN",
	Concat:            "CONCAT",
	RejectRule:        "REJECTRULE",
	DisTag:            "DISTAG",
	GetRule:           "GETRULE",
	SetRule:           "SETRULE",
	LUCount:           "LUCOUNT",
}
