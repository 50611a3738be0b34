// Package mock provides test doubles shared by the cronjob-trigger packages.
//
// MockClock implements clock.Clock with manually advanced time; deferred
// calls run synchronously from Advance, so debounce behaviour can be
// asserted without sleeping.
//
// APIServer is an httptest-backed stand-in for the batch/v1 Kubernetes API.
// It serves CronJob reads and Job creates, enforces the bearer token,
// assigns names for generateName the way the real API server does, and
// records every request so tests can assert the exact wire traffic:
//
//	api := mock.NewAPIServer(t, "token")
//	api.AddCronJob("batch", "nightly", map[string]interface{}{"backoffLimit": 0})
//	// ... point the launcher at api.URL ...
//	assert.Equal(t, 1, api.CountRequests(http.MethodPost))
package mock
