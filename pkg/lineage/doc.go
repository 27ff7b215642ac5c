// Package lineage tracks the volume bookkeeping of split solids. Every
// split produces two SplitElements whose volume ratios are measured
// against the never-split root solid, so ratios stay correct at any
// nesting depth and can apportion the source element's quantities.
package lineage
