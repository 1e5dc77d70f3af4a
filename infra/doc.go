// Package infra holds the adapters to the outside world: the route search
// page, the NER and station lookup APIs, LINE, the light triggers, the job
// store and the metrics backends. Packages below it implement interfaces
// declared under core and never import each other's internals.
package infra
