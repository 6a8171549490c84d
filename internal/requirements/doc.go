// Package requirements lets steps declare the inputs they need and checks
// those declarations at run time.
//
// A [Requirement] names a container (state, params or forcing), a dotted
// path inside it and optional type and predicate constraints. Requirements
// are attached to a step with [Attach] or [Requires] and collected with
// [Retrieve], which walks the chain of wrapping layers outermost first.
//
// [Validate] checks a list of requirements against concrete inputs and
// partitions the violations into errors and warnings. It never modifies
// its inputs. [Result.Err] converts errors into a single [*Error].
package requirements
