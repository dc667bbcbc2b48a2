/*
Package routefile loads application trees from YAML route files.

A route file declares an application, its paths and its mounts. Every
path serves a Document: the static body from the file, together with the
path variables and the query parameters of the request.

	name: root
	paths:
	  - id: home
	    pattern: ""
	    body: {title: Home}
	  - id: document
	    pattern: documents/{id:int}
	    parameters: {lang: en}
	    body: {title: Document}
	  - id: search
	    pattern: search
	    required: [q]
	    converters: {page: int}
	    extraParameters: true
	mounts:
	  - pattern: wikis/{wiki}
	    app:
	      name: wiki
	      paths:
	        - id: page
	          pattern: pages/{name}

The type of a parameter is inferred from its default value, or set
explicitly by name in the converters map, e.g. "int", "date" or "[]int".

The documents are served as JSON by the views registered with
RegisterViews, with a self link and the links of the documents of the
same application.
*/
package routefile
