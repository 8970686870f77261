// Package executor runs GraphQL operations against a resolver map.
//
// Execution is a recursive fan-out. Each selection set collects its fields
// into ordered response-key groups, then resolves every group in its own
// goroutine (serially for mutation roots). A group's work is resolver
// dispatch, argument coercion, and value completion; completion of object
// values recurses into another fan-out. After the WaitGroup drains, the
// parent frame assembles slots in selection order, so response keys and
// error lists come out deterministic no matter how the scheduler interleaved
// the resolvers.
//
// Null propagation rides an error sentinel instead of tombstone values. A
// frame that cannot produce a value for a non-null position records the
// field error once and returns errBubbleNull; ancestor frames pass the
// sentinel upward silently until a nullable field or list element absorbs
// it as a plain null. A bubble that reaches the root nulls the entire data
// tree.
//
// Leaf serialization, variable coercion, and argument coercion all go
// through the coerce registry. The one deliberate asymmetry: default values
// for variables, arguments, and input object fields convert straight from
// their literals, bypassing registered coercers, because defaults are part
// of the schema text and take effect exactly as authored.
//
// Subscriptions resolve their single root field once to an event stream and
// then run only value completion per emitted value.
package executor
