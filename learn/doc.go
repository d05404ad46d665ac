// Package learn talks to the course catalog.
//
// TokenProvider obtains a bearer token from the Microsoft identity platform
// with the client credentials grant; CatalogClient uses a fresh token for each
// query and returns the catalog JSON untouched.
//
//	tokens := learn.NewTokenProvider(learn.Credentials{
//	    ClientID:     id,
//	    ClientSecret: secret,
//	    TenantID:     tenant,
//	})
//	catalog := learn.NewCatalogClient(catalogURL, tokens)
//	courses, err := catalog.GetCoursesForGrade(ctx, 3.5)
package learn
