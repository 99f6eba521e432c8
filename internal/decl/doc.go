// Package decl loads component declarations from .hcl files and builds them
// in a component.Environment.
//
// A file declares any number of components:
//
//	component "Counter" {
//	  extends  = "Base"
//	  children = ["Label"]
//
//	  property "count" {
//	    type  = number
//	    value = 0
//	  }
//
//	  element "root" {
//	    tag   = "span"
//	    attrs = { class = "counter" }
//	  }
//
//	  watch {
//	    get "property" "count" {
//	      match = input > 0
//	    }
//	    set "attribute" "data-count" {
//	      target = "root"
//	      value  = "#${input}"
//	      delay  = "50ms"
//	    }
//	  }
//	}
//
// Literal values are decoded once at load time. Any other value or match
// expression is handed to the environment's evaluator, so it is evaluated on
// every propagation with `input`, `props` and `this` in scope.
//
// Get kinds are property, event and node_event; set kinds are property,
// event, attribute and node_property. Property and event adapters target a
// component by name and default to the declaring component. The other kinds
// target an element of the declaring component's view. A target that cannot
// be resolved is logged and left unbound, which makes the adapter inert.
package decl
