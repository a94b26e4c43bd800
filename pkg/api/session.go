// Package api is the client session layer for the Sedna XML database.
//
// A Session wraps one native driver handle (see pkg/driver) and provides:
//   - Lifecycle: Connect(), ConnectFunc(), Close(), Reset(), Connected()
//   - Statements: Execute() / Query(), LoadDocument(), LoadDocumentString()
//   - Transactions: Transaction(), Begin(), Commit(), Rollback(), InTransaction()
//   - Autocommit mode: Autocommit(), SetAutocommit()
//
// Every failure is an *Error whose Code tells the kind apart:
// AUTHENTICATION, CONNECTION, TRANSACTION, GENERIC for driver reported
// failures, plus TYPE_MISMATCH and INVALID_PARAM for arguments rejected
// before anything is sent to the server.
//
//	err := api.ConnectFunc(ctx, &api.Options{Database: "mydb"}, func(s *api.Session) error {
//		if _, err := s.Execute(ctx, "create document 'mydoc'"); err != nil {
//			return err
//		}
//		rs, err := s.Execute(ctx, "doc('mydoc')")
//		...
//	})
package api
