// Package commerce provides the entity-type serializers consumed by the
// sync engine: orders, subscriptions, contacts, products and abandoned
// carts. Each serializer shapes one wire payload, applies the local
// precondition checks that divert bad records to the incompatible state,
// and names the remote first_key grouping for its type.
package commerce
