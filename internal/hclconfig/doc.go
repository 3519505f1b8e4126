// Package hclconfig loads pipeline definitions from HCL files.
//
// A file declares any number of pipelines:
//
//	locals {
//	  repo = "https://github.com/acme/site.git"
//	}
//
//	pipeline "site" {
//	  stage "Source" {
//	    action "Checkout" {
//	      kind    = "source"
//	      uses    = "gitsource"
//	      outputs = ["source"]
//	      config  = { url = local.repo, branch = "master" }
//	      secrets = { token = "env:GITHUB_TOKEN" }
//	    }
//	  }
//	}
//
// Expressions may use the functions upper, lower, join, format, concat,
// coalesce and length. Environment values are only reachable as secret
// references such as "env:GITHUB_TOKEN", which the executor resolves.
package hclconfig
