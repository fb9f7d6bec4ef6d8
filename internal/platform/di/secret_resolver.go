// internal/platform/di/secret_resolver.go
package di

import (
	"context"
	"errors"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// resolveSecret fetches a secret payload from Secret Manager. name accepts
// either a full resource name (projects/.../secrets/.../versions/...) or a
// bare secret id, which is expanded against projectID at version "latest".
func resolveSecret(ctx context.Context, projectID, name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", errors.New("di: secret name is empty")
	}
	if !strings.HasPrefix(n, "projects/") {
		prj := strings.TrimSpace(projectID)
		if prj == "" {
			return "", errors.New("di: GCP_PROJECT_ID required to resolve secret id " + n)
		}
		n = "projects/" + prj + "/secrets/" + n + "/versions/latest"
	}

	sm, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", errors.New("di: secretmanager.NewClient failed: " + err.Error())
	}
	defer func() { _ = sm.Close() }()

	resp, err := sm.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: n})
	if err != nil {
		return "", errors.New("di: AccessSecretVersion failed (" + n + "): " + err.Error())
	}
	if resp == nil || resp.Payload == nil {
		return "", errors.New("di: empty secret payload (" + n + ")")
	}
	return strings.TrimSpace(string(resp.Payload.Data)), nil
}
