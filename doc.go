// Package provision implements single-owner account provisioning and
// session authentication.
//
// Provisioning is a two stage workflow over one configured email address:
//   - Issue: claim the owner address with an operator chosen temporary
//     code, generate a random temporary password, store only its hash on
//     an Applicant row, and mail the plaintext to the operator.
//   - Activate: consume the mailed temporary password together with the
//     operator code, create the permanent Individual and Account records
//     in one transaction, and delete the Applicant.
//
// Authentication is session based: a successful login persists an
// AccountSession row (random token, client address, Individual
// reference) and hands the caller a signed cookie token. The request
// gate in http.go resolves that token before every handler and rejects
// unauthenticated requests unless the route explicitly opts out.
package provision
