// Package launcher turns a trigger into a Kubernetes Job built from an
// existing CronJob's job template.
//
// The launcher talks to the API server through a client-go REST client
// configured like the dynamic client, and keeps both documents unstructured: the job template is opaque to this
// program and is forwarded as-is, so fields added by newer Kubernetes
// versions survive the round trip.
//
// Wire traffic per launch:
//
//	GET  {server}/apis/batch/v1/namespaces/{ns}/cronjobs/{name}
//	POST {server}/apis/batch/v1/namespaces/{ns}/jobs
//
// The POST body is
//
//	{apiVersion: batch/v1, kind: Job,
//	 metadata: {generateName: "{name}-manual-", namespace: {ns}},
//	 spec: <spec.jobTemplate.spec of the CronJob>}
//
// Any failure is returned as a *LaunchError naming the failed stage and,
// when the cluster answered, its status code and message. Bodies that are
// not a Kubernetes Status (a proxy's HTML error page, for example) are
// reported as client-go captured them: whitespace-trimmed and capped.
//
// The launcher never retries, and it also switches off client-go's
// built-in retries on Retry-After answers and connection resets; callers
// decide how failures are reported.
package launcher
