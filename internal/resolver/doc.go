// Package resolver turns API responses into crawl data.
//
// IdentityResolver maps a seed name to its stable id using an identity
// endpoint shaped like the Mojang profile API:
//
//	GET https://api.mojang.com/users/profiles/minecraft/{name}
//	{"id": "...", "name": "..."}
//
// MembershipResolver maps an id to its group using an endpoint shaped like
// the Hypixel guild API:
//
//	GET https://api.hypixel.net/v2/guild?player={id}
//	{"success": true, "guild": {"_id": "...", "members": [{"uuid": "..."}]}}
//
// Neither resolver retries; all retry and throttling logic lives in the
// fetch package. Absence (unknown name, no group, hard failure, malformed
// body) is reported through the ok result, never as an error. Errors are
// reserved for conditions that stop the crawl.
package resolver
