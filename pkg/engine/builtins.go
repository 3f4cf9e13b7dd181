package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/threshold/pkg/batch"
	"github.com/chazu/threshold/pkg/geom"
	"github.com/chazu/threshold/pkg/model"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms script source before passing it to zygomys.
// It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: create-floors -> create_floors
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator).
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only when the hyphen sits between identifier characters; otherwise
		// it is the minus operator.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpElement refers to a document element created by a builtin.
type sexpElement struct {
	kind string // "level", "wall", "door", "floor-type"
	id   model.ElementID
	name string
}

func (e *sexpElement) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", e.kind, e.name)
}
func (e *sexpElement) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a point given in millimetres.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %.1f %.1f %.1f)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a boolean from a Sexp. nil counts as false.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return false, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_basic) and plain strings ("basic").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toVec3 extracts a millimetre point from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toElement resolves a reference returned by a builtin, or a plain name,
// to the ID of an element of the given kind.
func toElement(doc *model.Document, kind string, s zygo.Sexp) (model.ElementID, error) {
	if ref, ok := s.(*sexpElement); ok {
		if ref.kind != kind {
			return model.ZeroID, fmt.Errorf("expected %s, got %s %q", kind, ref.kind, ref.name)
		}
		return ref.id, nil
	}
	name, err := toString(s)
	if err != nil {
		return model.ZeroID, fmt.Errorf("expected %s reference or name: %w", kind, err)
	}
	id, ok := doc.Lookup(kind, name)
	if !ok {
		return model.ZeroID, fmt.Errorf("no %s named %q", kind, name)
	}
	return id, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// nameArg returns the leading positional name argument of a builtin.
func nameArg(builtin string, pa kwArgs) (string, error) {
	if len(pa.positional) < 1 {
		return "", fmt.Errorf("%s requires a name argument", builtin)
	}
	name, err := toString(pa.positional[0])
	if err != nil {
		return "", fmt.Errorf("%s: name: %w", builtin, err)
	}
	return name, nil
}

// lengthKW reads an optional millimetre keyword argument and returns it in
// internal units.
func lengthKW(builtin string, pa kwArgs, key string) (float64, bool, error) {
	v, ok := pa.kw[key]
	if !ok {
		return 0, false, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %s: %w", builtin, key, err)
	}
	return geom.ToInternal(f), true, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all DSL builtins into a zygomys environment.
// The builtins populate s.Doc and append to s.Requests during evaluation.
// Lengths in source are millimetres and rotations are degrees.
//
// Hyphenated builtins are registered with underscores because
// preprocessSource rewrites floor-type to floor_type.
func registerBuiltins(env *zygo.Zlisp, s *Script) {
	doc := s.Doc

	// -----------------------------------------------------------------------
	// (level "L1" :elevation 3000)
	// -----------------------------------------------------------------------
	env.AddFunction("level", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		lvlName, err := nameArg("level", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		elev, _, err := lengthKW("level", pa, "elevation")
		if err != nil {
			return zygo.SexpNull, err
		}
		lvl, err := doc.AddLevel(lvlName, elev)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("level: %w", err)
		}
		return &sexpElement{kind: "level", id: lvl.ID, name: lvl.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (floor-type "Concrete" :thickness 150)
	// -----------------------------------------------------------------------
	env.AddFunction("floor_type", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		ftName, err := nameArg("floor-type", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		th, ok, err := lengthKW("floor-type", pa, "thickness")
		if err != nil {
			return zygo.SexpNull, err
		}
		if !ok {
			th = doc.Defaults.SlabThickness
		}
		ft, err := doc.AddFloorType(ftName, th)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("floor-type: %w", err)
		}
		return &sexpElement{kind: "floor-type", id: ft.ID, name: ft.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (floor-types) returns the catalog names in ascending order.
	// -----------------------------------------------------------------------
	env.AddFunction("floor_types", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		names := doc.FloorTypeNames()
		items := make([]zygo.Sexp, len(names))
		for i, n := range names {
			items[i] = &zygo.SexpStr{S: n}
		}
		return zygo.MakeList(items), nil
	})

	// -----------------------------------------------------------------------
	// (wall "W1" :thickness 200 :kind :basic)
	// -----------------------------------------------------------------------
	env.AddFunction("wall", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		wallName, err := nameArg("wall", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		th, ok, err := lengthKW("wall", pa, "thickness")
		if err != nil {
			return zygo.SexpNull, err
		}
		if !ok {
			return zygo.SexpNull, fmt.Errorf("wall %q: thickness is required", wallName)
		}
		kind := model.WallBasic
		if v, ok := pa.kw["kind"]; ok {
			k, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("wall: kind: %w", err)
			}
			if kind, err = model.ParseWallKind(k); err != nil {
				return zygo.SexpNull, fmt.Errorf("wall: %w", err)
			}
		}
		w, err := doc.AddWall(wallName, th, kind)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("wall: %w", err)
		}
		return &sexpElement{kind: "wall", id: w.ID, name: w.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: v3.Vec{X: x, Y: y, Z: z}}, nil
	})

	// -----------------------------------------------------------------------
	// (door "D1" :at (vec3 0 0 0) :rotation 90 :width 900 :wall "W1" :level "L1")
	// -----------------------------------------------------------------------
	env.AddFunction("door", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		doorName, err := nameArg("door", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		d := model.Door{Name: doorName}

		if v, ok := pa.kw["at"]; ok {
			at, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("door: at: %w", err)
			}
			d.Anchor = v3.Vec{X: geom.ToInternal(at.X), Y: geom.ToInternal(at.Y), Z: geom.ToInternal(at.Z)}
		}
		if v, ok := pa.kw["rotation"]; ok {
			deg, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("door: rotation: %w", err)
			}
			d.Rotation = deg * math.Pi / 180
		}
		if d.Width, _, err = lengthKW("door", pa, "width"); err != nil {
			return zygo.SexpNull, err
		}

		v, ok := pa.kw["wall"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("door %q: wall is required", doorName)
		}
		if d.HostID, err = toElement(doc, "wall", v); err != nil {
			return zygo.SexpNull, fmt.Errorf("door: wall: %w", err)
		}
		v, ok = pa.kw["level"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("door %q: level is required", doorName)
		}
		if d.LevelID, err = toElement(doc, "level", v); err != nil {
			return zygo.SexpNull, fmt.Errorf("door: level: %w", err)
		}

		dr, err := doc.AddDoor(d)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("door: %w", err)
		}
		return &sexpElement{kind: "door", id: dr.ID, name: dr.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (host-version 2023)
	// -----------------------------------------------------------------------
	env.AddFunction("host_version", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("host-version requires exactly 1 argument, got %d", len(args))
		}
		v, ok := args[0].(*zygo.SexpInt)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("host-version: expected integer, got %T", args[0])
		}
		doc.Defaults.HostVersion = int(v.Val)
		return &zygo.SexpStr{S: s.Tier().String()}, nil
	})

	// -----------------------------------------------------------------------
	// (create-floors :type "Concrete" :offset 0 :combine true :doors (list "D1" d2))
	//
	// Queues a batch; omitting :doors selects every door in the document
	// when the batch runs.
	// -----------------------------------------------------------------------
	env.AddFunction("create_floors", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var req batch.Request

		v, ok := pa.kw["type"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("create-floors: type is required")
		}
		typeName, err := toString(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("create-floors: type: %w", err)
		}
		req.FloorTypeName = typeName

		if v, ok := pa.kw["offset"]; ok {
			if req.HeightOffset, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("create-floors: offset: %w", err)
			}
		}
		if v, ok := pa.kw["combine"]; ok {
			if req.Combine, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("create-floors: combine: %w", err)
			}
		}
		if v, ok := pa.kw["doors"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("create-floors: doors: %w", err)
			}
			for _, item := range items {
				id, err := toElement(doc, "door", item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("create-floors: doors: %w", err)
				}
				req.Doors = append(req.Doors, id)
			}
		}

		s.Requests = append(s.Requests, req)
		return &zygo.SexpInt{Val: int64(len(s.Requests))}, nil
	})
}
