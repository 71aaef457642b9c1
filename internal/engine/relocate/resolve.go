package relocate

import (
	"fmt"

	"pyshape/internal/engine/cst"
	"pyshape/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Category is the resolved placement of one imported name. Higher values win
// when hints disagree.
type Category int

const (
	Unused Category = iota
	TypeOnly
	RuntimeLocal
	ClassLevel
	ModulePinned
)

func (c Category) String() string {
	switch c {
	case Unused:
		return "Unused"
	case TypeOnly:
		return "TypeOnly"
	case RuntimeLocal:
		return "RuntimeLocal"
	case ClassLevel:
		return "ClassLevel"
	case ModulePinned:
		return "ModulePinned"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Resolution is the per-run relocation plan.
type Resolution struct {
	Categories map[string]Category
	// Localize maps a function key to the names it must import locally.
	Localize map[string][]string
	// Guard lists the names to import under TYPE_CHECKING, sorted.
	Guard []string
	// Strip holds typed parameters and function definitions whose
	// annotation must be removed.
	Strip []*sitter.Node

	drop map[string]bool
}

// Dropped reports whether the module-level import of name goes away.
func (r *Resolution) Dropped(name string) bool {
	return r.drop[name]
}

// Empty reports whether the plan changes nothing.
func (r *Resolution) Empty() bool {
	return len(r.drop) == 0 && len(r.Guard) == 0 && len(r.Localize) == 0 && len(r.Strip) == 0
}

// Resolve merges the usage sites of every indexed name into one category and
// derives the edits the rewriter and injector must perform.
func Resolve(doc *cst.Document, idx *Index, usage *Usage) *Resolution {
	res := &Resolution{
		Categories: make(map[string]Category),
		Localize:   make(map[string][]string),
		drop:       make(map[string]bool),
	}
	canGuard := guardWritable(doc, idx)
	byName := usage.sitesByName()
	stripped := make(map[uintptr]bool)

	for _, name := range util.SortedStringKeys(idx.Bindings) {
		b := idx.Bindings[name]
		if b.Pinned || b.Module == "" {
			res.Categories[name] = ModulePinned
			continue
		}
		sites := byName[name]
		cat, runtimeFns := categorize(sites, usage)
		res.Categories[name] = cat

		switch cat {
		case RuntimeLocal:
			res.drop[name] = true
			for _, fn := range runtimeFns {
				if !usage.LocalImports[fn][b.pair()] {
					res.Localize[fn] = append(res.Localize[fn], name)
				}
			}
			for _, site := range sites {
				if site.Kind != AnnotationParam && site.Kind != AnnotationReturn {
					continue
				}
				if reachable(site.Scope, name, b, res, usage) || site.Owner == nil {
					continue
				}
				if id := site.Owner.Id(); !stripped[id] {
					stripped[id] = true
					res.Strip = append(res.Strip, site.Owner)
				}
			}
		case TypeOnly:
			if usage.CastAnywhere[name] || !canGuard {
				continue
			}
			res.drop[name] = true
			if !importedWhereAnnotated(sites, b, usage) && !idx.GuardPairs[b.pair()] {
				res.Guard = append(res.Guard, name)
			}
		}
	}
	return res
}

// categorize folds the sites of one name into a category and, for runtime
// use, the functions that need the name.
func categorize(sites []UsageSite, usage *Usage) (Category, []string) {
	if len(sites) == 0 {
		return Unused, nil
	}
	// A function declaring the name global reads the module binding.
	classLevel := usage.Globals[sites[0].Name]
	runtime := make(map[string]bool)
	for _, site := range sites {
		fn, inFunction := site.Scope.Function()
		switch {
		case site.Kind == AnnotationVar:
			// Module and class annotations are evaluated at definition time.
			if !inFunction {
				classLevel = true
			}
		case site.Kind.Annotation():
		case !inFunction:
			classLevel = true
		default:
			runtime[fn] = true
		}
	}
	if classLevel {
		return ClassLevel, nil
	}
	if len(runtime) == 0 {
		return TypeOnly, nil
	}
	fns := util.SortedStringKeys(runtime)
	for _, fn := range fns {
		if !usage.Injectable[fn] {
			return ClassLevel, nil
		}
	}
	return RuntimeLocal, fns
}

// reachable reports whether an annotation in scope still resolves once name
// leaves module scope: some enclosing function imports it locally.
func reachable(scope ScopePath, name string, b *Binding, res *Resolution, usage *Usage) bool {
	for _, fn := range scope.Functions() {
		if usage.LocalImports[fn][b.pair()] {
			return true
		}
		for _, n := range res.Localize[fn] {
			if n == name {
				return true
			}
		}
	}
	return false
}

func importedWhereAnnotated(sites []UsageSite, b *Binding, usage *Usage) bool {
	for _, site := range sites {
		if site.Annotated == "" || !usage.LocalImports[site.Annotated][b.pair()] {
			return false
		}
	}
	return true
}

// guardWritable reports whether guard imports have somewhere to go: either
// no guard exists yet, or the first one has an indented body.
func guardWritable(doc *cst.Document, idx *Index) bool {
	if len(idx.Guards) == 0 {
		return true
	}
	suite := doc.BodySuite(idx.Guards[0])
	return suite != nil && !suite.Inline && len(suite.Items) > 0
}
