// Package persona classifies incoming questions against an ordered rule
// table and assembles the model prompt for the selected response mode.
//
// The rule table is a first-class data structure evaluated by explicit
// code. Precedence is positional: rules are checked in declaration order
// and the first match wins, which is what keeps a specific rule (how many
// years of experience) from being swallowed by a general one (the
// Experience section). Fixed-reply rules never reach the language model.
package persona
