// Package mlgate provides a metrics threshold gate and a pipeline engine for
// ML deployment flows.
//
// Pipelines are defined declaratively in YAML and executed by pluggable
// service layers:
//
//   - scheduler – advances runs and schedules ready steps
//   - runner    – executes scheduled steps through a worker pool
//   - executor  – invokes actions such as gate, automl, tuner or storage
//   - approval  – optional human sign-off before deployment steps
//
// The engine is designed to be embedded in host applications. End-users
// typically interact with it via the Service facade exposed by this package:
//
//	srv := mlgate.New()
//	rt := srv.Runtime()
//	_ = rt.Start(ctx)
//	pipeline, _ := rt.LoadPipeline(ctx, "release.yaml")
//	_, wait, _ := rt.StartRun(ctx, pipeline, nil)
//	out, _ := wait(ctx, time.Minute)
//
// The threshold gate itself is usable standalone via the gate package.
package mlgate
