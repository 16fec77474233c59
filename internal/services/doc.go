// Package services implements the remote side of the playlist pipeline on top of
// google.golang.org/api/youtube/v3.
//
// # Remote Listing Client
//
// [YouTubeClient] implements [Lister] and [Writer]. Listings use cursor pagination through
// [YouTubeClient.FetchAllPages]: the first request carries no cursor, each following request
// carries the previous response's next-page token, and the walk stops when the token is absent.
// A token returned alongside an empty page is reported as a remote-call fault.
//
// Playlist reads first ask for the playlist's declared item count, then walk the item pages.
// Every item page is followed by exactly one batched videos.list call for that page's ids.
//
// # Credentials
//
// [TokenProvider] implements [CredentialProvider]. It refreshes expired tokens through the
// oauth2 token source and hands refreshed tokens to a persistence callback.
// [Factory] builds readers from the user token when one is available, else from the API key,
// and writers from the user token only.
//
// # Errors
//
// All remote failures are returned as *shared.Fault values carrying the operation name and the
// page or item index. HTTP 401 responses become authorization faults; everything else is a
// remote-call fault.
package services
