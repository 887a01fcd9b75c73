// Package access implements the privilege model of the object dictionary.
//
// # Userlevels
//
// Every session carries a current Userlevel. Levels form a strict total order:
//
//	Readonly < Normal < Service < Internal
//
// Parameters declare the minimum level needed to write them (and, rarely, to
// read them). The level compared against that threshold is the effective
// level: the current level, except that Readonly counts as Normal. Readonly
// tells a transport which operations to offer; it does not reduce privilege
// below baseline.
//
// # Raising Privilege
//
// Lowering a session's level is always allowed. Raising it is decided by an
// installed Decider; this package ships three:
//
//   - PasswordDecider: one Argon2id password hash per level
//   - TokenDecider: an HS256 JWT whose "ul" claim names the highest level granted
//   - Chain: allows when any member allows
//
// The decision seam performs credential checks only; enforcement of the
// approved level against parameter thresholds happens in the tree.
package access
