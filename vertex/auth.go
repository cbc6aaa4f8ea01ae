package vertex

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
)

// vertexScope is the OAuth2 scope Application Default Credentials need to
// call the Vertex AI REST API, grounded on original_source's
// google.auth.default() call (the Python client library resolves the
// same cloud-platform scope internally).
const vertexScope = "https://www.googleapis.com/auth/cloud-platform"

// bearerToken returns a fresh ADC access token. It re-resolves
// credentials lazily via google.FindDefaultCredentials on every call
// rather than caching a *oauth2.TokenSource field, so a credential file
// swapped during the process lifetime (common in local dev) takes
// effect without restarting the adapter.
func bearerToken(ctx context.Context) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, vertexScope)
	if err != nil {
		return "", fmt.Errorf("vertex: resolving application default credentials: %w", err)
	}
	token, err := creds.TokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("vertex: fetching access token: %w", err)
	}
	return token.AccessToken, nil
}
