// Package secrets turns secret references such as "env:GITHUB_TOKEN" or
// "awssm:prod/github#token" into the values handlers receive at run time.
//
// References are resolved as late as possible, by the executor right before
// an action runs. Values are never logged and never written back into a
// definition or a plan.
package secrets
