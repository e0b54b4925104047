// Package webapp serves the poker circle membership site.
//
// Every route is registered with an access level and runs through the same
// pipeline: resolve the session, load the bound member, apply the
// authentication gate or authorization filter, check the CSRF token on
// state-changing requests, then call the handler. Handlers return errors; the
// interceptor shows the message of an *HTTPError and "something went wrong"
// for anything else. Unmatched paths and methods get a plain-text 404.
//
// Denied requests never reach a handler. An anonymous visitor is redirected
// to /login with "please log in"; a member on an admin route is redirected to
// /platform with "administrator privileges required".
//
// Flash notices are queued on redirects and drained by the next rendered
// page.
package webapp
