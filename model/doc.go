// Package model defines the pipeline definition model: the pipeline itself,
// its step graph and declarative parameters. Definitions are typically
// decoded from YAML by service/dao/pipeline, but can also be assembled
// programmatically via NewPipeline and the builder helpers.
package model
