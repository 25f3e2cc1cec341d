package discovery

// defQueries are the per-language tree-sitter capture queries used by
// Phase 2 resolvers to find definition sites. Adapted and expanded from
// teacher's internal/scanner/queries.go (kept verbatim for Go/Python/
// JavaScript/TypeScript/Zig/Lua). Every query captures @name and @def;
// the resolver classifies a definition from the @def node's own grammar
// kind. Go's method query also captures the receiver type as @container,
// which the resolver does not currently read.
var defQueries = map[string]string{
	"go": `
		(function_declaration name: (identifier) @name) @def
		(method_declaration
			receiver: (parameter_list (parameter_declaration type: (_) @container))
			name: (field_identifier) @name) @def
		(type_declaration (type_spec name: (type_identifier) @name)) @def
	`,
	"python": `
		(function_definition name: (identifier) @name) @def
		(class_definition name: (identifier) @name) @def
	`,
	"javascript": `
		(function_declaration name: (identifier) @name) @def
		(class_declaration name: (identifier) @name) @def
		(method_definition name: (property_identifier) @name) @def
		(variable_declarator name: (identifier) @name) @def
	`,
	"typescript": `
		(function_declaration name: (identifier) @name) @def
		(class_declaration name: (type_identifier) @name) @def
		(method_definition name: (property_identifier) @name) @def
		(interface_declaration name: (type_identifier) @name) @def
		(type_alias_declaration name: (type_identifier) @name) @def
	`,
	"zig": `
		(function_declaration (symbol_declaration name: (identifier) @name)) @def
	`,
	"lua": `
		(function_declaration name: [
			(identifier)
			(dot_index_expression)
			(method_index_expression)
		] @name) @def
		(variable_declaration
			(variable_list
				(variable (identifier) @name))) @def
		(assignment_statement
			(variable_list
				(variable (identifier) @name))) @def
	`,
}

// embedQueries locate struct-embedding sites, the structural analogue of
// inheritance in Go, used to emit InheritsFrom edges. Same-package embeds
// capture a bare type_identifier; cross-package embeds (import-qualified,
// e.g. `a.Base`) capture a qualified_type instead — resolver_go.go tells
// the two apart by whether the captured text contains a dot.
var embedQueries = map[string]string{
	"go": `
		(type_spec
			name: (type_identifier) @child
			type: (struct_type (field_declaration_list
				(field_declaration type: (type_identifier) @parent))))

		(type_spec
			name: (type_identifier) @child
			type: (struct_type (field_declaration_list
				(field_declaration type: (qualified_type) @parent))))
	`,
}

// intentQueries, keyed by (language, intent), locate occurrence sites for
// Phase B of two-phase reference discovery (spec §4.D "Reference
// discovery"). They are intentionally permissive: Phase A's token filter
// already bounds candidates to files containing the literal short name,
// so Phase B only needs to distinguish *contexts* (call vs type vs field)
// among occurrences already known to exist.
var intentQueries = map[string]map[string]string{
	"go": {
		"method-call": `(call_expression function: (selector_expression field: (field_identifier) @occ))`,
		"type-reference": `(type_identifier) @occ`,
		"field-access": `(selector_expression field: (field_identifier) @occ)`,
		"generic": `(identifier) @occ`,
	},
	"python": {
		"method-call":    `(call function: (attribute attribute: (identifier) @occ))`,
		"type-reference": `(identifier) @occ`,
		"field-access":   `(attribute attribute: (identifier) @occ)`,
		"generic":        `(identifier) @occ`,
	},
	"javascript": {
		"method-call":    `(call_expression function: (member_expression property: (property_identifier) @occ))`,
		"type-reference": `(identifier) @occ`,
		"field-access":   `(member_expression property: (property_identifier) @occ)`,
		"generic":        `(identifier) @occ`,
	},
	"typescript": {
		"method-call":    `(call_expression function: (member_expression property: (property_identifier) @occ))`,
		"type-reference": `(type_identifier) @occ`,
		"field-access":   `(member_expression property: (property_identifier) @occ)`,
		"generic":        `(identifier) @occ`,
	},
}
