package callresolve

// builtinTypes names the built-in collection/wrapper types spec.md §4.6
// excludes from "user class" receiver resolution — a call through one of
// these is never resolved to a user-defined callee.
var builtinTypes = map[string]struct{}{
	"String": {}, "StringBuilder": {}, "StringBuffer": {},
	"Integer": {}, "Long": {}, "Double": {}, "Float": {}, "Boolean": {}, "Character": {}, "Byte": {}, "Short": {},
	"List": {}, "ArrayList": {}, "LinkedList": {},
	"Map": {}, "HashMap": {}, "TreeMap": {}, "LinkedHashMap": {},
	"Set": {}, "HashSet": {}, "TreeSet": {}, "LinkedHashSet": {},
	"Collection": {}, "Collections": {}, "Arrays": {},
	"Optional": {}, "Objects": {}, "Object": {},
	"Iterator": {}, "Iterable": {}, "Stream": {},
}

func isBuiltin(typeName string) bool {
	_, ok := builtinTypes[typeName]
	return ok
}
