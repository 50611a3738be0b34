package launcher

import (
	"context"
	"fmt"
	"path"

	batchv1 "k8s.io/api/batch/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/yaml"

	"cronjob-trigger/pkg/logging"
)

const (
	// ManualSuffix is appended to the CronJob name to form the Job's
	// generateName; the API server appends a unique suffix after it.
	ManualSuffix = "-manual-"

	userAgent = "cronjob-trigger"
)

var (
	cronJobsResource = batchv1.SchemeGroupVersion.WithResource("cronjobs")
	jobsResource     = batchv1.SchemeGroupVersion.WithResource("jobs")
)

// resourcePath returns the namespaced collection path of gvr, plus name
// when given.
func resourcePath(gvr schema.GroupVersionResource, namespace string, name ...string) string {
	return path.Join(append([]string{"/apis", gvr.Group, gvr.Version, "namespaces", namespace, gvr.Resource}, name...)...)
}

// Config identifies the source CronJob and how to reach the API server.
// All fields are fixed for the lifetime of the process.
type Config struct {
	APIServer string
	Token     string
	Namespace string
	CronJob   string
	CAFile    string
	Insecure  bool
}

// Launcher creates Jobs from a CronJob's job template.
//
// Each Launch performs exactly one CronJob read followed by at most one Job
// create. The CronJob itself is never modified and nothing is retried:
// client-go's own Retry-After and connection-reset retries are disabled on
// every request.
type Launcher struct {
	client    rest.Interface
	namespace string
	cronJob   string
}

// New creates a Launcher that authenticates with a bearer token.
func New(cfg Config) (*Launcher, error) {
	restConfig := &rest.Config{
		Host:        cfg.APIServer,
		BearerToken: cfg.Token,
		UserAgent:   userAgent,
		TLSClientConfig: rest.TLSClientConfig{
			CAFile:   cfg.CAFile,
			Insecure: cfg.Insecure,
		},
	}

	// Same content negotiation as the dynamic client, without its request
	// builder, so that retries can be switched off per request.
	client, err := rest.UnversionedRESTClientFor(dynamic.ConfigFor(restConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	return NewWithClient(client, cfg.Namespace, cfg.CronJob), nil
}

// NewWithClient creates a Launcher on top of an existing REST client. The
// client must negotiate JSON and decode Kubernetes Status errors, as one
// built from dynamic.ConfigFor does.
func NewWithClient(client rest.Interface, namespace, cronJob string) *Launcher {
	return &Launcher{
		client:    client,
		namespace: namespace,
		cronJob:   cronJob,
	}
}

// CronJob returns the namespace/name of the source CronJob.
func (l *Launcher) CronJob() string {
	return l.namespace + "/" + l.cronJob
}

// Launch reads the CronJob and creates one Job from its template. It returns
// the name the API server assigned to the new Job. Errors are *LaunchError.
func (l *Launcher) Launch(ctx context.Context) (string, error) {
	logging.Debug("Launcher", "Fetching CronJob %s", l.CronJob())

	cronJob, err := l.get(ctx)
	if err != nil {
		return "", newLaunchError(StageFetch, err)
	}

	job, err := BuildJob(cronJob, l.namespace)
	if err != nil {
		return "", &LaunchError{Stage: StageConstruct, Err: err}
	}

	if logging.Enabled(logging.LevelDebug) {
		if manifest, err := yaml.Marshal(job.Object); err == nil {
			logging.Debug("Launcher", "Submitting Job:\n%s", manifest)
		}
	}

	created, err := l.create(ctx, job)
	if err != nil {
		return "", newLaunchError(StageSubmit, err)
	}

	return created.GetName(), nil
}

func (l *Launcher) get(ctx context.Context) (*unstructured.Unstructured, error) {
	result := l.client.Get().
		AbsPath(resourcePath(cronJobsResource, l.namespace, l.cronJob)).
		MaxRetries(0).
		Do(ctx)
	return decodeResult(result)
}

func (l *Launcher) create(ctx context.Context, job *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	body, err := runtime.Encode(unstructured.UnstructuredJSONScheme, job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode Job: %w", err)
	}

	result := l.client.Post().
		AbsPath(resourcePath(jobsResource, l.namespace)).
		SetHeader("Content-Type", "application/json").
		Body(body).
		MaxRetries(0).
		Do(ctx)
	return decodeResult(result)
}

// decodeResult turns a response into an object. Error() is checked first
// because it is what decodes a Status body into an API error.
func decodeResult(result rest.Result) (*unstructured.Unstructured, error) {
	if err := result.Error(); err != nil {
		return nil, err
	}

	raw, err := result.Raw()
	if err != nil {
		return nil, err
	}

	obj := &unstructured.Unstructured{}
	if err := obj.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return obj, nil
}

// BuildJob returns a new Job whose spec is a deep copy of the CronJob's
// spec.jobTemplate.spec. The template is passed through untouched; only its
// presence is checked.
func BuildJob(cronJob *unstructured.Unstructured, namespace string) (*unstructured.Unstructured, error) {
	spec, found, err := unstructured.NestedMap(cronJob.Object, "spec", "jobTemplate", "spec")
	if err != nil {
		return nil, fmt.Errorf("CronJob %s has a malformed job template: %w", cronJob.GetName(), err)
	}
	if !found {
		return nil, fmt.Errorf("CronJob %s has no spec.jobTemplate.spec", cronJob.GetName())
	}

	job := &unstructured.Unstructured{Object: map[string]interface{}{}}
	job.SetAPIVersion(batchv1.SchemeGroupVersion.String())
	job.SetKind("Job")
	job.SetGenerateName(cronJob.GetName() + ManualSuffix)
	job.SetNamespace(namespace)
	job.Object["spec"] = spec

	return job, nil
}
