/*
Package dispatch serves the resolved models over HTTP.

Views are registered in a Registry by the type of the model, and selected
by three predicates: the name of the view, taken from the unconsumed end
of the path, the request method, and optionally the media type of the
request body. The lookup of the model type follows the same rules as the
link generation: exact type, pointer element, then the registered
interfaces in registration order.

The Handler resolves the request path with the routing package, looks up
the view and calls it. The errors are mapped to the status codes:

	routing.ErrNotFound, no view          404
	pathtrie.BadRequestError              400
	malformed query string                400
	view found only for other methods     405
	view found only for other body types  415
	any other error                       500
*/
package dispatch
